package bot

import (
	"fmt"
	"strings"

	"github.com/vkrlab/briefbot/internal/outline"
	"github.com/vkrlab/briefbot/internal/types"
)

const (
	msgListUnavailable = "The topic list is temporarily unavailable. Please try again later or contact your curator."
	msgListEmpty       = "The topic list is currently empty. Contact your curator."
	msgChooseTopic     = "Choose your thesis topic:"
	msgChooseFromList  = "Choose a topic from the list of brief pages."
	msgTopicNotFound   = "Topic not found. Choose again: /start"
	msgChooseFirst     = "Choose a topic first: /start"
	msgInputCancelled  = "Input cancelled."
	msgRequestSent     = "Your request has been sent. We'll get back to you."
	msgEmptyFreeText   = "Please type your message, or press Cancel above."
	msgHelpPrompt      = "Describe what you need help with (type it in the chat):"
	msgMeetingPrompt   = "Share time slots that work for a review/meeting (e.g. Mon 15:00, Wed after 18:00). Type it in the chat:"
	msgStepsNotLoaded  = "Steps are not loaded. Open \"Step-by-step\" again."

	checklistItemDisplayMax = 60
	briefButtonLabelMax     = 50
)

func backRow() []Button {
	return []Button{{Label: "◀ Back", Action: ActionBackToMenu}}
}

func backScreen(text string) Screen {
	return Screen{Text: text, Buttons: [][]Button{backRow()}}
}

func briefListScreen(briefs []types.Brief, excludePrefix string) Screen {
	var rows [][]Button
	for _, b := range briefs {
		if !b.Selectable() {
			continue
		}
		if excludePrefix != "" && strings.HasPrefix(b.Title, excludePrefix) {
			continue
		}
		rows = append(rows, []Button{{
			Label:  outline.Truncate(b.Title, briefButtonLabelMax),
			Action: fmt.Sprintf("%s:%d", ActionSelectBrief, b.Index),
		}})
	}
	if len(rows) == 0 {
		return Screen{Text: msgListEmpty}
	}
	return Screen{Text: msgChooseTopic, Buttons: rows}
}

func topicMenuScreen(brief types.Brief, url string) Screen {
	text := fmt.Sprintf("Topic: %s\n\nPick a section or open the brief in Notion:", brief.Title)
	buttons := [][]Button{
		{{Label: "📄 Open brief in Notion", URL: url}},
		{
			{Label: "✅ Checklist", Action: ActionMenu + ":" + MenuChecklist},
			{Label: "🖥 Environment", Action: ActionMenu + ":" + MenuEnvironment},
		},
		{
			{Label: "📦 Product", Action: ActionMenu + ":" + MenuProduct},
			{Label: "📋 Step-by-step", Action: ActionMenu + ":" + MenuSteps},
		},
		{
			{Label: "🆘 Need help", Action: ActionMenu + ":" + MenuHelp},
			{Label: "📅 Need review/meeting", Action: ActionMenu + ":" + MenuMeeting},
		},
	}
	return Screen{Text: text, Buttons: buttons}
}

func checklistScreen(items []types.ChecklistItem, checked map[int]struct{}, url string, briefIndex int) Screen {
	lines := []string{"Checklist (tap an item to toggle):\n"}
	var rows [][]Button
	for i, item := range items {
		_, done := checked[i]
		mark := "☐"
		if done {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %d. %s", mark, i+1, outline.Truncate(item.Text, checklistItemDisplayMax)))
		rows = append(rows, []Button{{
			Label:  fmt.Sprintf("%s %d", mark, i+1),
			Action: fmt.Sprintf("%s:%d:%d", ActionChecklistOpt, briefIndex, i),
		}})
	}
	rows = append(rows, backRow())
	text := strings.Join(lines, "\n") + "\n\nMore in Notion: " + url
	return Screen{Text: text, Buttons: rows}
}

func sectionScreen(key types.SectionKey, sec types.Section, url string) Screen {
	emoji := "🖥"
	title := sec.Title
	if title == "" {
		title = "Environment / infrastructure"
	}
	if key == types.SectionProduct {
		emoji = "📦"
		if sec.Title == "" {
			title = "Demo application / product choice"
		}
	}
	var text string
	if sec.Preview == "" {
		text = fmt.Sprintf("%s %s\n\nDetails are in the Notion brief: %s", emoji, title, url)
	} else {
		text = fmt.Sprintf("%s %s\n\n%s\n\nOpen the section in Notion: %s", emoji, title, sec.Preview, url)
	}
	return backScreen(text)
}

func stepScreen(step types.Step, index, total int, url string) Screen {
	text := fmt.Sprintf("Step %d/%d: %s\n\n%s\n\nMore in Notion: %s", index+1, total, step.Title, step.Preview, url)
	var row []Button
	if index > 0 {
		row = append(row, Button{Label: "◀ Prev", Action: ActionStep + ":prev"})
	}
	if index < total-1 {
		row = append(row, Button{Label: "Next ▶", Action: ActionStep + ":next"})
	}
	row = append(row, Button{Label: "Menu", Action: ActionBackToMenu})
	return Screen{Text: text, Buttons: [][]Button{row}}
}

func freeTextPromptScreen(kind types.RequestKind) Screen {
	prompt := msgHelpPrompt
	if kind == types.RequestKindMeeting {
		prompt = msgMeetingPrompt
	}
	return Screen{
		Text:    prompt,
		Buttons: [][]Button{{{Label: "Cancel", Action: ActionCancelInput}}},
	}
}
