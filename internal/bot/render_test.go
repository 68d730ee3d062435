package bot

import (
	"strings"
	"testing"

	"github.com/vkrlab/briefbot/internal/types"
)

func TestBriefListScreen_FiltersHeadingsAndPrefix(t *testing.T) {
	briefs := []types.Brief{
		{Index: 0, Title: "Section", Kind: types.BriefKindHeading, Level: 1},
		{Index: 1, Title: "Topic A", Kind: types.BriefKindPage, PageID: "a"},
		{Index: 2, Title: "Internal: staging notes", Kind: types.BriefKindPage, PageID: "b"},
	}

	screen := briefListScreen(briefs, "Internal:")
	if len(screen.Buttons) != 1 {
		t.Fatalf("expected 1 button, got %d", len(screen.Buttons))
	}
	btn := screen.Buttons[0][0]
	if btn.Label != "Topic A" || btn.Action != "brief:1" {
		t.Fatalf("unexpected button: %+v", btn)
	}
}

func TestBriefListScreen_LongTitlesTruncatedOnButton(t *testing.T) {
	long := strings.Repeat("t", 80)
	screen := briefListScreen([]types.Brief{
		{Index: 0, Title: long, Kind: types.BriefKindPage, PageID: "a"},
	}, "")
	if got := len([]rune(screen.Buttons[0][0].Label)); got != briefButtonLabelMax {
		t.Fatalf("expected label capped at %d, got %d", briefButtonLabelMax, got)
	}
}

func TestBriefListScreen_AllFilteredShowsEmptyMessage(t *testing.T) {
	screen := briefListScreen([]types.Brief{
		{Index: 0, Title: "Section", Kind: types.BriefKindHeading},
	}, "")
	if screen.Text != msgListEmpty || len(screen.Buttons) != 0 {
		t.Fatalf("unexpected screen: %+v", screen)
	}
}

func TestTopicMenuScreen_HasLinkAndSections(t *testing.T) {
	screen := topicMenuScreen(types.Brief{Title: "Topic A"}, "https://notion.so/a")
	if !strings.Contains(screen.Text, "Topic A") {
		t.Fatalf("missing topic title: %q", screen.Text)
	}
	if screen.Buttons[0][0].URL != "https://notion.so/a" {
		t.Fatalf("first row must be the page link: %+v", screen.Buttons[0][0])
	}
	var actions []string
	for _, row := range screen.Buttons[1:] {
		for _, b := range row {
			actions = append(actions, b.Action)
		}
	}
	want := []string{"menu:checklist", "menu:environment", "menu:product", "menu:steps", "menu:help", "menu:meeting"}
	if len(actions) != len(want) {
		t.Fatalf("expected %d menu buttons, got %v", len(want), actions)
	}
	for i, a := range want {
		if actions[i] != a {
			t.Fatalf("expected action %q at %d, got %q", a, i, actions[i])
		}
	}
}

func TestChecklistScreen_MarksAndToggleButtons(t *testing.T) {
	items := []types.ChecklistItem{{Text: "one"}, {Text: "two"}}
	screen := checklistScreen(items, map[int]struct{}{1: {}}, "https://notion.so/a", 3)

	if !strings.Contains(screen.Text, "☐ 1. one") || !strings.Contains(screen.Text, "✅ 2. two") {
		t.Fatalf("unexpected lines:\n%s", screen.Text)
	}
	if screen.Buttons[1][0].Action != "chk:3:1" {
		t.Fatalf("toggle action must carry brief and item index: %+v", screen.Buttons[1][0])
	}
	last := screen.Buttons[len(screen.Buttons)-1][0]
	if last.Action != ActionBackToMenu {
		t.Fatalf("expected trailing back row, got %+v", last)
	}
}

func TestChecklistScreen_LongItemTextTruncatedInLine(t *testing.T) {
	long := strings.Repeat("x", 100)
	screen := checklistScreen([]types.ChecklistItem{{Text: long}}, nil, "u", 0)
	if strings.Contains(screen.Text, long) {
		t.Fatalf("display line must be truncated")
	}
	if !strings.Contains(screen.Text, strings.Repeat("x", checklistItemDisplayMax)) {
		t.Fatalf("expected %d-rune cut:\n%s", checklistItemDisplayMax, screen.Text)
	}
}

func TestSectionScreen_EmptyPreviewLinksOut(t *testing.T) {
	screen := sectionScreen(types.SectionEnvironment, types.Section{}, "https://notion.so/a")
	if !strings.Contains(screen.Text, "Environment / infrastructure") {
		t.Fatalf("expected default title:\n%s", screen.Text)
	}
	if !strings.Contains(screen.Text, "Details are in the Notion brief") {
		t.Fatalf("expected link fallback:\n%s", screen.Text)
	}
}

func TestSectionScreen_PreviewRendered(t *testing.T) {
	screen := sectionScreen(types.SectionProduct, types.Section{Title: "Product choice", Preview: "Pick one."}, "u")
	if !strings.Contains(screen.Text, "📦 Product choice") || !strings.Contains(screen.Text, "Pick one.") {
		t.Fatalf("unexpected section screen:\n%s", screen.Text)
	}
}

func TestStepScreen_NavigationButtonsAtBounds(t *testing.T) {
	step := types.Step{Position: 1, Title: "First", Preview: "Body"}

	first := stepScreen(step, 0, 3, "u")
	if !strings.Contains(first.Text, "Step 1/3: First") {
		t.Fatalf("unexpected text: %q", first.Text)
	}
	for _, b := range first.Buttons[0] {
		if b.Action == "step:prev" {
			t.Fatalf("first step must not offer prev")
		}
	}

	last := stepScreen(step, 2, 3, "u")
	for _, b := range last.Buttons[0] {
		if b.Action == "step:next" {
			t.Fatalf("last step must not offer next")
		}
	}

	middle := stepScreen(step, 1, 3, "u")
	var actions []string
	for _, b := range middle.Buttons[0] {
		actions = append(actions, b.Action)
	}
	if len(actions) != 3 || actions[0] != "step:prev" || actions[1] != "step:next" || actions[2] != ActionBackToMenu {
		t.Fatalf("unexpected middle-step actions: %v", actions)
	}
}

func TestFreeTextPromptScreen_KindSelectsPrompt(t *testing.T) {
	help := freeTextPromptScreen(types.RequestKindHelp)
	if help.Text != msgHelpPrompt {
		t.Fatalf("got %q", help.Text)
	}
	meeting := freeTextPromptScreen(types.RequestKindMeeting)
	if meeting.Text != msgMeetingPrompt {
		t.Fatalf("got %q", meeting.Text)
	}
	if meeting.Buttons[0][0].Action != ActionCancelInput {
		t.Fatalf("expected cancel button, got %+v", meeting.Buttons[0][0])
	}
}
