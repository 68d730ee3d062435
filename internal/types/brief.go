package types

// BriefKind distinguishes selectable topic pages from structural headings in
// the outline listing.
type BriefKind string

const (
	BriefKindPage    BriefKind = "page"
	BriefKindHeading BriefKind = "heading"
)

// Brief is one entry of the parsed topic outline. Briefs are derived from the
// outline source on every fetch and never persisted; students reference them
// by Index only.
type Brief struct {
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	Kind        BriefKind `json:"kind"`
	Level       int       `json:"level"`
	PageID      string    `json:"page_id,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Selectable reports whether a student may choose this brief.
func (b Brief) Selectable() bool {
	return b.Kind == BriefKindPage
}

// Step is one ordered step of a brief, derived from a level-2 heading and the
// content accumulated under it.
type Step struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Preview  string `json:"preview"`
}

// ChecklistItem is one to-do entry of a brief. Checked reflects the state in
// the source document; per-student completion lives in ChecklistMark rows.
type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// SectionKey names the fixed keyword-classified content groupings.
type SectionKey string

const (
	SectionEnvironment SectionKey = "environment"
	SectionProduct     SectionKey = "product"
)

// Section is a keyword-matched grouping inside a brief's content.
type Section struct {
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// BriefContent is the parsed content of one selected brief.
type BriefContent struct {
	Steps     []Step                 `json:"steps"`
	Checklist []ChecklistItem        `json:"checklist"`
	Sections  map[SectionKey]Section `json:"sections"`
}
