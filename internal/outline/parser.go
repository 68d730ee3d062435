package outline

import (
	"context"
	"strings"

	"github.com/vkrlab/briefbot/internal/clients/notion"
	"github.com/vkrlab/briefbot/internal/types"
)

const (
	// StepPreviewMax bounds a step's accumulated preview. Sections reuse the
	// same bound; it keeps every rendered message under the transport's 4096
	// message limit.
	StepPreviewMax = 3600
	paragraphMax   = 400
	listItemMax    = 280

	bulletMarker = "• "

	// BriefTitlePrefix is stripped from child-page titles for display.
	BriefTitlePrefix = "Brief for student: "

	untitledBrief = "(untitled)"
)

var environmentKeywords = []string{"infrastructure", "environment", "cluster"}
var productKeywords = []string{"demo application", "product", "application choice"}

// TitleResolver looks up a page title when the child_page block carries none.
// May be nil.
type TitleResolver func(ctx context.Context, pageID string) (string, error)

// ParseBriefList maps top-level outline blocks to the brief list. Child pages
// become selectable briefs, headings become structural entries, and the first
// paragraph after an entry becomes its description. Unknown block types are
// skipped.
func ParseBriefList(ctx context.Context, blocks []notion.Block, resolveTitle TitleResolver) []types.Brief {
	briefs := []types.Brief{}
	for _, b := range blocks {
		switch b.Type {
		case notion.BlockChildPage:
			title := b.ChildPageTitle()
			if title == "" && resolveTitle != nil {
				if resolved, err := resolveTitle(ctx, b.ID); err == nil {
					title = strings.TrimSpace(resolved)
				}
			}
			if title == "" {
				title = untitledBrief
			}
			briefs = append(briefs, types.Brief{
				Index:  len(briefs),
				Title:  StripTitlePrefix(title),
				Kind:   types.BriefKindPage,
				Level:  1,
				PageID: b.ID,
			})
		case notion.BlockHeading1, notion.BlockHeading2, notion.BlockHeading3:
			briefs = append(briefs, types.Brief{
				Index: len(briefs),
				Title: b.PlainText(),
				Kind:  types.BriefKindHeading,
				Level: headingLevel(b.Type),
			})
		case notion.BlockParagraph:
			text := b.PlainText()
			if text == "" || len(briefs) == 0 {
				continue
			}
			if last := &briefs[len(briefs)-1]; last.Description == "" {
				last.Description = text
			}
		}
	}
	return briefs
}

// ParseBriefContent maps one brief page's blocks into ordered steps, the
// checklist and keyword-classified sections. A level-2 heading opens a new
// step and flushes accumulated preview text into the previous one; other
// text blocks accumulate under the current step. Section classification is
// last-match-wins: a later matching heading overrides an earlier one, and the
// final occurrence is canonical.
func ParseBriefContent(blocks []notion.Block) types.BriefContent {
	content := types.BriefContent{
		Steps:     []types.Step{},
		Checklist: []types.ChecklistItem{},
		Sections:  map[types.SectionKey]types.Section{},
	}

	var current []string
	flush := func() {
		if len(current) > 0 && len(content.Steps) > 0 {
			content.Steps[len(content.Steps)-1].Preview = Truncate(strings.Join(current, "\n"), StepPreviewMax)
		}
		current = nil
	}

	for _, b := range blocks {
		text := b.PlainText()
		switch b.Type {
		case notion.BlockHeading2:
			flush()
			content.Steps = append(content.Steps, types.Step{
				Position: len(content.Steps) + 1,
				Title:    text,
			})
			if key, ok := classifySection(text); ok {
				content.Sections[key] = types.Section{Title: text}
			}
		case notion.BlockHeading3:
			if len(content.Steps) > 0 {
				current = append(current, text)
			}
		case notion.BlockParagraph:
			if text != "" && len(content.Steps) > 0 {
				current = append(current, Truncate(text, paragraphMax))
			}
		case notion.BlockToDo:
			content.Checklist = append(content.Checklist, types.ChecklistItem{
				Text:    text,
				Checked: b.ToDo != nil && b.ToDo.Checked,
			})
		case notion.BlockBulletedListItem:
			if text != "" && len(content.Steps) > 0 {
				current = append(current, bulletMarker+Truncate(text, listItemMax))
			}
		case notion.BlockNumberedListItem:
			if text != "" && len(content.Steps) > 0 {
				current = append(current, Truncate(text, listItemMax))
			}
		}
	}
	flush()

	// Second pass fills section previews from the finished steps; later
	// matches keep overriding so the last heading stays canonical.
	for _, step := range content.Steps {
		if key, ok := classifySection(step.Title); ok {
			content.Sections[key] = types.Section{
				Title:   step.Title,
				Preview: Truncate(step.Preview, StepPreviewMax),
			}
		}
	}

	return content
}

func classifySection(title string) (types.SectionKey, bool) {
	lower := strings.ToLower(title)
	for _, kw := range environmentKeywords {
		if strings.Contains(lower, kw) {
			return types.SectionEnvironment, true
		}
	}
	for _, kw := range productKeywords {
		if strings.Contains(lower, kw) {
			return types.SectionProduct, true
		}
	}
	return "", false
}

func headingLevel(blockType string) int {
	switch blockType {
	case notion.BlockHeading1:
		return 1
	case notion.BlockHeading2:
		return 2
	case notion.BlockHeading3:
		return 3
	default:
		return 0
	}
}

// StripTitlePrefix removes the shared brief-page prefix, leaving the topic.
func StripTitlePrefix(title string) string {
	if strings.HasPrefix(title, BriefTitlePrefix) {
		return strings.TrimSpace(title[len(BriefTitlePrefix):])
	}
	return title
}

// Truncate bounds s to max runes. Content is cut, never dropped wholesale.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
