package notion

import "strings"

// Block type names used by the outline parser. Anything else is skipped.
const (
	BlockChildPage        = "child_page"
	BlockHeading1         = "heading_1"
	BlockHeading2         = "heading_2"
	BlockHeading3         = "heading_3"
	BlockParagraph        = "paragraph"
	BlockBulletedListItem = "bulleted_list_item"
	BlockNumberedListItem = "numbered_list_item"
	BlockToDo             = "to_do"
)

type RichText struct {
	PlainText string `json:"plain_text"`
}

type TextPayload struct {
	RichText []RichText `json:"rich_text"`
}

type ToDoPayload struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

type ChildPagePayload struct {
	Title string `json:"title"`
}

// Block is one top-level content block of a page. Only the payload matching
// Type is populated.
type Block struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	Paragraph        *TextPayload      `json:"paragraph,omitempty"`
	Heading1         *TextPayload      `json:"heading_1,omitempty"`
	Heading2         *TextPayload      `json:"heading_2,omitempty"`
	Heading3         *TextPayload      `json:"heading_3,omitempty"`
	BulletedListItem *TextPayload      `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextPayload      `json:"numbered_list_item,omitempty"`
	ToDo             *ToDoPayload      `json:"to_do,omitempty"`
	ChildPage        *ChildPagePayload `json:"child_page,omitempty"`
}

// PlainText concatenates the rich-text runs of the block's payload. A block
// with no payload for its type yields "".
func (b Block) PlainText() string {
	var rich []RichText
	switch b.Type {
	case BlockParagraph:
		if b.Paragraph != nil {
			rich = b.Paragraph.RichText
		}
	case BlockHeading1:
		if b.Heading1 != nil {
			rich = b.Heading1.RichText
		}
	case BlockHeading2:
		if b.Heading2 != nil {
			rich = b.Heading2.RichText
		}
	case BlockHeading3:
		if b.Heading3 != nil {
			rich = b.Heading3.RichText
		}
	case BlockBulletedListItem:
		if b.BulletedListItem != nil {
			rich = b.BulletedListItem.RichText
		}
	case BlockNumberedListItem:
		if b.NumberedListItem != nil {
			rich = b.NumberedListItem.RichText
		}
	case BlockToDo:
		if b.ToDo != nil {
			rich = b.ToDo.RichText
		}
	}
	var sb strings.Builder
	for _, r := range rich {
		sb.WriteString(r.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

// ChildPageTitle returns the title carried on a child_page block itself,
// which may be empty even for real pages.
func (b Block) ChildPageTitle() string {
	if b.ChildPage == nil {
		return ""
	}
	return strings.TrimSpace(b.ChildPage.Title)
}
