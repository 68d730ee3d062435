package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vkrlab/briefbot/internal/data/repos"
	"github.com/vkrlab/briefbot/internal/outline"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/services"
	"github.com/vkrlab/briefbot/internal/types"
)

// Machine interprets interaction events against per-user session state and
// persisted selection, producing the next screen to render. One instance
// serves all users; per-user events are expected to arrive serially.
type Machine struct {
	log           *logger.Logger
	catalog       *outline.Catalog
	students      repos.StudentRepo
	checklists    repos.ChecklistRepo
	intake        services.IntakeService
	sessions      *SessionStore
	excludePrefix string
}

func NewMachine(log *logger.Logger, catalog *outline.Catalog, students repos.StudentRepo, checklists repos.ChecklistRepo, intake services.IntakeService, sessions *SessionStore, excludePrefix string) *Machine {
	return &Machine{
		log:           log.With("component", "Machine"),
		catalog:       catalog,
		students:      students,
		checklists:    checklists,
		intake:        intake,
		sessions:      sessions,
		excludePrefix: excludePrefix,
	}
}

// Start handles the entry event: a persisted valid selection jumps straight
// to the topic menu, otherwise the selectable-brief list is rendered. Any
// pending free-text capture is discarded.
func (m *Machine) Start(ctx context.Context, u UserInfo) (Screen, error) {
	sess := m.sessions.Get(u.ID)
	sess.Awaiting = ""

	if err := m.students.Upsert(ctx, nil, u.ID, u.Username, u.FirstName, u.LastName); err != nil {
		return Screen{}, fmt.Errorf("upsert student: %w", err)
	}

	briefs, err := m.catalog.Briefs(ctx)
	if err != nil || len(briefs) == 0 {
		return Screen{Text: msgListUnavailable}, nil
	}

	student, err := m.students.GetByID(ctx, nil, u.ID)
	if err != nil {
		return Screen{}, fmt.Errorf("load student: %w", err)
	}
	if student != nil && student.SelectedBriefIndex != nil {
		idx := *student.SelectedBriefIndex
		if idx >= 0 && idx < len(briefs) && briefs[idx].Selectable() {
			return topicMenuScreen(briefs[idx], m.catalog.PublicURL(briefs[idx].PageID)), nil
		}
	}

	return briefListScreen(briefs, m.excludePrefix), nil
}

// HandleAction interprets one callback action (button tap).
func (m *Machine) HandleAction(ctx context.Context, u UserInfo, data string) (Screen, error) {
	if err := m.students.Upsert(ctx, nil, u.ID, u.Username, u.FirstName, u.LastName); err != nil {
		return Screen{}, fmt.Errorf("upsert student: %w", err)
	}

	action, args := splitAction(data)
	switch action {
	case ActionSelectBrief:
		return m.selectBrief(ctx, u, args)
	case ActionMenu:
		return m.openMenuSection(ctx, u, args)
	case ActionStep:
		return m.navigateStep(ctx, u, args)
	case ActionChecklistOpt:
		return m.toggleChecklistItem(ctx, u, args)
	case ActionCancelInput:
		sess := m.sessions.Get(u.ID)
		sess.Awaiting = ""
		return backScreen(msgInputCancelled), nil
	case ActionBackToMenu:
		brief, url, errScreen, err := m.resolveSelection(ctx, u.ID)
		if err != nil {
			return Screen{}, err
		}
		if errScreen != nil {
			return *errScreen, nil
		}
		return topicMenuScreen(brief, url), nil
	default:
		return Screen{}, nil
	}
}

// HandleText consumes free text while a capture is pending. The returned
// bool reports whether the text was consumed; unrelated chatter is ignored.
func (m *Machine) HandleText(ctx context.Context, u UserInfo, text string) (Screen, bool, error) {
	sess := m.sessions.Get(u.ID)
	kind := sess.Awaiting
	if kind == "" {
		return Screen{}, false, nil
	}
	if strings.TrimSpace(text) == "" {
		// Capture stays pending; no request is written.
		return Screen{Text: msgEmptyFreeText}, true, nil
	}

	if err := m.students.Upsert(ctx, nil, u.ID, u.Username, u.FirstName, u.LastName); err != nil {
		return Screen{}, true, fmt.Errorf("upsert student: %w", err)
	}

	sess.Awaiting = ""
	if _, err := m.intake.Submit(ctx, u.ID, kind, text); err != nil {
		sess.Awaiting = kind
		return Screen{}, true, fmt.Errorf("submit request: %w", err)
	}
	return Screen{Text: msgRequestSent}, true, nil
}

func (m *Machine) selectBrief(ctx context.Context, u UserInfo, args []string) (Screen, error) {
	briefs, err := m.catalog.Briefs(ctx)
	if err != nil || len(briefs) == 0 {
		return Screen{Text: msgListUnavailable}, nil
	}
	idx, ok := parseIndex(args)
	if !ok || idx < 0 || idx >= len(briefs) {
		return Screen{Text: msgTopicNotFound}, nil
	}
	brief := briefs[idx]
	if !brief.Selectable() {
		return Screen{Text: msgChooseFromList}, nil
	}
	if err := m.students.SetSelection(ctx, nil, u.ID, idx); err != nil {
		return Screen{}, fmt.Errorf("persist selection: %w", err)
	}
	return topicMenuScreen(brief, m.catalog.PublicURL(brief.PageID)), nil
}

func (m *Machine) openMenuSection(ctx context.Context, u UserInfo, args []string) (Screen, error) {
	if len(args) == 0 {
		return Screen{}, nil
	}
	section := args[0]

	// Free-text capture needs no content fetch.
	switch section {
	case MenuHelp, MenuMeeting:
		kind := types.RequestKindHelp
		if section == MenuMeeting {
			kind = types.RequestKindMeeting
		}
		sess := m.sessions.Get(u.ID)
		sess.Awaiting = kind
		return freeTextPromptScreen(kind), nil
	}

	brief, url, errScreen, err := m.resolveSelection(ctx, u.ID)
	if err != nil {
		return Screen{}, err
	}
	if errScreen != nil {
		return *errScreen, nil
	}

	content, err := m.catalog.BriefContent(ctx, brief.PageID)
	if err != nil {
		return backScreen("The brief content is temporarily unavailable. Please try again later."), nil
	}

	switch section {
	case MenuChecklist:
		if len(content.Checklist) == 0 {
			return backScreen("No checklist found in this brief.\n\nOpen the brief in Notion: " + url), nil
		}
		checked, err := m.checklists.GetMarked(ctx, nil, u.ID, brief.Index)
		if err != nil {
			return Screen{}, fmt.Errorf("load checklist marks: %w", err)
		}
		return checklistScreen(content.Checklist, checked, url, brief.Index), nil

	case MenuEnvironment:
		return sectionScreen(types.SectionEnvironment, content.Sections[types.SectionEnvironment], url), nil

	case MenuProduct:
		return sectionScreen(types.SectionProduct, content.Sections[types.SectionProduct], url), nil

	case MenuSteps:
		if len(content.Steps) == 0 {
			return backScreen("No steps found.\n\nOpen the brief in Notion: " + url), nil
		}
		sess := m.sessions.Get(u.ID)
		sess.Steps = content.Steps
		sess.StepIndex = 0
		sess.PageURL = url
		if err := m.students.SetCurrentStep(ctx, nil, u.ID, 0); err != nil {
			m.log.Warn("Could not persist step position", "user_id", u.ID, "error", err)
		}
		return stepScreen(content.Steps[0], 0, len(content.Steps), url), nil

	default:
		return Screen{}, nil
	}
}

func (m *Machine) navigateStep(ctx context.Context, u UserInfo, args []string) (Screen, error) {
	student, err := m.students.GetByID(ctx, nil, u.ID)
	if err != nil {
		return Screen{}, fmt.Errorf("load student: %w", err)
	}
	if student == nil || student.SelectedBriefIndex == nil {
		return Screen{Toast: msgChooseFirst}, nil
	}

	sess := m.sessions.Get(u.ID)
	n := len(sess.Steps)
	if n == 0 {
		return Screen{Toast: msgStepsNotLoaded}, nil
	}

	direction := ""
	if len(args) > 0 {
		direction = args[0]
	}
	idx := sess.StepIndex
	switch direction {
	case "prev":
		idx--
	case "next":
		idx++
	default:
		v, err := strconv.Atoi(direction)
		if err != nil {
			v = 0
		}
		idx = v
	}
	idx = clamp(idx, 0, n-1)

	sess.StepIndex = idx
	if err := m.students.SetCurrentStep(ctx, nil, u.ID, idx); err != nil {
		m.log.Warn("Could not persist step position", "user_id", u.ID, "error", err)
	}
	return stepScreen(sess.Steps[idx], idx, n, sess.PageURL), nil
}

func (m *Machine) toggleChecklistItem(ctx context.Context, u UserInfo, args []string) (Screen, error) {
	if len(args) != 2 {
		return Screen{}, nil
	}
	briefIdx, err1 := strconv.Atoi(args[0])
	itemIdx, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || briefIdx < 0 || itemIdx < 0 {
		return Screen{}, nil
	}

	checked, err := m.checklists.GetMarked(ctx, nil, u.ID, briefIdx)
	if err != nil {
		return Screen{}, fmt.Errorf("load checklist marks: %w", err)
	}
	_, wasDone := checked[itemIdx]
	newState := !wasDone
	if err := m.checklists.SetMark(ctx, nil, u.ID, briefIdx, itemIdx, newState); err != nil {
		return Screen{}, fmt.Errorf("toggle checklist mark: %w", err)
	}

	briefs, err := m.catalog.Briefs(ctx)
	if err != nil || briefIdx >= len(briefs) {
		return Screen{Toast: "Topic not found."}, nil
	}
	brief := briefs[briefIdx]
	content, err := m.catalog.BriefContent(ctx, brief.PageID)
	if err != nil || itemIdx >= len(content.Checklist) {
		return Screen{}, nil
	}

	checked, err = m.checklists.GetMarked(ctx, nil, u.ID, briefIdx)
	if err != nil {
		return Screen{}, fmt.Errorf("reload checklist marks: %w", err)
	}
	screen := checklistScreen(content.Checklist, checked, m.catalog.PublicURL(brief.PageID), briefIdx)
	if newState {
		screen.Toast = "Marked"
	} else {
		screen.Toast = "Unmarked"
	}
	return screen, nil
}

// resolveSelection loads the student's persisted selection and validates it
// against the current brief list. A non-nil screen means the caller should
// render it instead of proceeding.
func (m *Machine) resolveSelection(ctx context.Context, userID int64) (types.Brief, string, *Screen, error) {
	student, err := m.students.GetByID(ctx, nil, userID)
	if err != nil {
		return types.Brief{}, "", nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil || student.SelectedBriefIndex == nil {
		s := Screen{Text: msgChooseFirst}
		return types.Brief{}, "", &s, nil
	}

	briefs, err := m.catalog.Briefs(ctx)
	if err != nil || len(briefs) == 0 {
		s := Screen{Text: msgListUnavailable}
		return types.Brief{}, "", &s, nil
	}

	idx := *student.SelectedBriefIndex
	if idx < 0 || idx >= len(briefs) || !briefs[idx].Selectable() {
		s := Screen{Text: msgTopicNotFound}
		return types.Brief{}, "", &s, nil
	}

	brief := briefs[idx]
	return brief, m.catalog.PublicURL(brief.PageID), nil, nil
}

func splitAction(data string) (string, []string) {
	parts := strings.Split(data, ":")
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

func parseIndex(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return v, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
