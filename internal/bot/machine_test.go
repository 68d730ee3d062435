package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vkrlab/briefbot/internal/clients/notion"
	"github.com/vkrlab/briefbot/internal/outline"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

// ---------- fakes ----------

type fakeSource struct {
	blocks map[string][]notion.Block
	err    error
}

func (f *fakeSource) FetchTopLevelBlocks(_ context.Context, pageID string) ([]notion.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.blocks[pageID], nil
}

func (f *fakeSource) FetchPageTitle(_ context.Context, _ string) (string, error) {
	return "", errors.New("no title")
}

func (f *fakeSource) PublicURL(pageID string) string {
	return "https://notion.so/" + pageID
}

type fakeStudentRepo struct {
	students map[int64]*types.Student
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: map[int64]*types.Student{}}
}

func (r *fakeStudentRepo) Upsert(_ context.Context, _ *gorm.DB, userID int64, username, firstName, lastName string) error {
	st, ok := r.students[userID]
	if !ok {
		st = &types.Student{UserID: userID}
		r.students[userID] = st
	}
	st.Username = username
	st.FirstName = firstName
	st.LastName = lastName
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, _ *gorm.DB, userID int64) (*types.Student, error) {
	return r.students[userID], nil
}

func (r *fakeStudentRepo) SetSelection(_ context.Context, _ *gorm.DB, userID int64, briefIndex int) error {
	if st, ok := r.students[userID]; ok {
		idx := briefIndex
		st.SelectedBriefIndex = &idx
	}
	return nil
}

func (r *fakeStudentRepo) ClearSelection(_ context.Context, _ *gorm.DB, userID int64) error {
	if st, ok := r.students[userID]; ok {
		st.SelectedBriefIndex = nil
		st.CurrentStepIndex = nil
	}
	return nil
}

func (r *fakeStudentRepo) SetCurrentStep(_ context.Context, _ *gorm.DB, userID int64, stepIndex int) error {
	if st, ok := r.students[userID]; ok {
		idx := stepIndex
		st.CurrentStepIndex = &idx
	}
	return nil
}

func (r *fakeStudentRepo) ListAll(_ context.Context, _ *gorm.DB) ([]*types.Student, error) {
	var out []*types.Student
	for _, st := range r.students {
		out = append(out, st)
	}
	return out, nil
}

func (r *fakeStudentRepo) ListWithSelection(_ context.Context, _ *gorm.DB) ([]*types.Student, error) {
	var out []*types.Student
	for _, st := range r.students {
		if st.SelectedBriefIndex != nil {
			out = append(out, st)
		}
	}
	return out, nil
}

type markKey struct {
	userID     int64
	briefIndex int
	itemIndex  int
}

type fakeChecklistRepo struct {
	marks map[markKey]struct{}
}

func newFakeChecklistRepo() *fakeChecklistRepo {
	return &fakeChecklistRepo{marks: map[markKey]struct{}{}}
}

func (r *fakeChecklistRepo) SetMark(_ context.Context, _ *gorm.DB, userID int64, briefIndex, itemIndex int, done bool) error {
	k := markKey{userID, briefIndex, itemIndex}
	if done {
		r.marks[k] = struct{}{}
	} else {
		delete(r.marks, k)
	}
	return nil
}

func (r *fakeChecklistRepo) GetMarked(_ context.Context, _ *gorm.DB, userID int64, briefIndex int) (map[int]struct{}, error) {
	out := map[int]struct{}{}
	for k := range r.marks {
		if k.userID == userID && k.briefIndex == briefIndex {
			out[k.itemIndex] = struct{}{}
		}
	}
	return out, nil
}

func (r *fakeChecklistRepo) CountByUserBrief(_ context.Context, _ *gorm.DB, userID int64, briefIndex int) (int64, error) {
	var n int64
	for k := range r.marks {
		if k.userID == userID && k.briefIndex == briefIndex {
			n++
		}
	}
	return n, nil
}

func (r *fakeChecklistRepo) DeleteByUser(_ context.Context, _ *gorm.DB, userID int64) error {
	for k := range r.marks {
		if k.userID == userID {
			delete(r.marks, k)
		}
	}
	return nil
}

type submission struct {
	userID int64
	kind   types.RequestKind
	text   string
}

type fakeIntake struct {
	submissions []submission
	err         error
}

func (f *fakeIntake) Submit(_ context.Context, userID int64, kind types.RequestKind, text string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.submissions = append(f.submissions, submission{userID, kind, text})
	return uuid.New(), nil
}

func (f *fakeIntake) ListUnresolved(_ context.Context) ([]*types.HelpRequest, error) { return nil, nil }
func (f *fakeIntake) ListResolved(_ context.Context) ([]*types.HelpRequest, error)  { return nil, nil }
func (f *fakeIntake) Resolve(_ context.Context, _ uuid.UUID) error                  { return nil }

// ---------- fixture ----------

type fixture struct {
	machine  *Machine
	source   *fakeSource
	students *fakeStudentRepo
	marks    *fakeChecklistRepo
	intake   *fakeIntake
	sessions *SessionStore
}

func heading2(text string) notion.Block {
	return notion.Block{Type: notion.BlockHeading2, Heading2: &notion.TextPayload{RichText: []notion.RichText{{PlainText: text}}}}
}

func paragraph(text string) notion.Block {
	return notion.Block{Type: notion.BlockParagraph, Paragraph: &notion.TextPayload{RichText: []notion.RichText{{PlainText: text}}}}
}

func todoBlock(text string) notion.Block {
	return notion.Block{Type: notion.BlockToDo, ToDo: &notion.ToDoPayload{RichText: []notion.RichText{{PlainText: text}}}}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	source := &fakeSource{blocks: map[string][]notion.Block{
		"root": {
			{ID: "pageA", Type: notion.BlockChildPage, ChildPage: &notion.ChildPagePayload{Title: "Brief for student: Topic A"}},
			{ID: "pageB", Type: notion.BlockChildPage, ChildPage: &notion.ChildPagePayload{Title: "Topic B"}},
		},
		"pageA": {
			heading2("First step"),
			paragraph("Do the thing."),
			heading2("Target environment"),
			paragraph("Use the shared cluster."),
			todoBlock("Set up repo"),
			todoBlock("Deploy"),
		},
	}}
	students := newFakeStudentRepo()
	marks := newFakeChecklistRepo()
	intake := &fakeIntake{}
	sessions := NewSessionStore()
	catalog := outline.NewCatalog(log, source, "root")
	machine := NewMachine(log, catalog, students, marks, intake, sessions, "")
	return &fixture{machine: machine, source: source, students: students, marks: marks, intake: intake, sessions: sessions}
}

var testUser = UserInfo{ID: 42, Username: "student", FirstName: "Stu", LastName: "Dent"}

func (f *fixture) selectTopicA(t *testing.T) {
	t.Helper()
	if _, err := f.machine.Start(context.Background(), testUser); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.machine.HandleAction(context.Background(), testUser, "brief:0"); err != nil {
		t.Fatalf("select: %v", err)
	}
}

// ---------- tests ----------

func TestStart_ShowsTopicList(t *testing.T) {
	f := newFixture(t)
	screen, err := f.machine.Start(context.Background(), testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgChooseTopic {
		t.Fatalf("expected topic list, got %q", screen.Text)
	}
	if len(screen.Buttons) != 2 {
		t.Fatalf("expected 2 topic buttons, got %d", len(screen.Buttons))
	}
	if screen.Buttons[0][0].Label != "Topic A" {
		t.Fatalf("expected stripped title, got %q", screen.Buttons[0][0].Label)
	}
	if f.students.students[testUser.ID] == nil {
		t.Fatalf("student must be registered on entry")
	}
}

func TestStart_SourceDownShowsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("down")
	screen, err := f.machine.Start(context.Background(), testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgListUnavailable {
		t.Fatalf("got %q", screen.Text)
	}
}

func TestStart_PersistedSelectionSkipsList(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.Start(context.Background(), testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Topic A") {
		t.Fatalf("expected topic menu for persisted selection, got %q", screen.Text)
	}
}

func TestStart_ClearsPendingCapture(t *testing.T) {
	f := newFixture(t)
	f.sessions.Get(testUser.ID).Awaiting = types.RequestKindHelp

	if _, err := f.machine.Start(context.Background(), testUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sessions.Get(testUser.ID).Awaiting != "" {
		t.Fatalf("entry must discard pending capture")
	}
}

func TestSelectBrief_OutOfRange(t *testing.T) {
	f := newFixture(t)
	screen, err := f.machine.HandleAction(context.Background(), testUser, "brief:99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgTopicNotFound {
		t.Fatalf("got %q", screen.Text)
	}
}

func TestSelectBrief_PersistsAndShowsMenu(t *testing.T) {
	f := newFixture(t)
	if _, err := f.machine.Start(context.Background(), testUser); err != nil {
		t.Fatalf("start: %v", err)
	}
	screen, err := f.machine.HandleAction(context.Background(), testUser, "brief:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Topic A") {
		t.Fatalf("expected topic menu, got %q", screen.Text)
	}
	st := f.students.students[testUser.ID]
	if st.SelectedBriefIndex == nil || *st.SelectedBriefIndex != 0 {
		t.Fatalf("selection not persisted: %+v", st)
	}
}

func TestMenu_WithoutSelection(t *testing.T) {
	f := newFixture(t)
	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu:checklist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgChooseFirst {
		t.Fatalf("got %q", screen.Text)
	}
}

func TestMenu_ChecklistRendersItems(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu:checklist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "☐ 1. Set up repo") || !strings.Contains(screen.Text, "☐ 2. Deploy") {
		t.Fatalf("checklist lines missing:\n%s", screen.Text)
	}
}

func TestMenu_EnvironmentSection(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu:environment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Target environment") || !strings.Contains(screen.Text, "Use the shared cluster.") {
		t.Fatalf("unexpected section text:\n%s", screen.Text)
	}
}

func TestMenu_ProductSectionEmptyFallsBackToLink(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu:product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Details are in the Notion brief") {
		t.Fatalf("expected link fallback for missing section:\n%s", screen.Text)
	}
}

func TestSteps_OpenLoadsSessionAndPersistsPosition(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu:steps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Step 1/2: First step") {
		t.Fatalf("unexpected step screen:\n%s", screen.Text)
	}
	sess := f.sessions.Get(testUser.ID)
	if len(sess.Steps) != 2 || sess.StepIndex != 0 {
		t.Fatalf("session not primed: %+v", sess)
	}
	st := f.students.students[testUser.ID]
	if st.CurrentStepIndex == nil || *st.CurrentStepIndex != 0 {
		t.Fatalf("step position not persisted")
	}
}

func TestSteps_NextAndPrevClampAtBounds(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)
	if _, err := f.machine.HandleAction(context.Background(), testUser, "menu:steps"); err != nil {
		t.Fatalf("open steps: %v", err)
	}

	screen, err := f.machine.HandleAction(context.Background(), testUser, "step:prev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Step 1/2") {
		t.Fatalf("prev at first step must stay put:\n%s", screen.Text)
	}

	for i := 0; i < 5; i++ {
		screen, err = f.machine.HandleAction(context.Background(), testUser, "step:next")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !strings.Contains(screen.Text, "Step 2/2") {
		t.Fatalf("next must clamp at last step:\n%s", screen.Text)
	}
}

func TestSteps_MalformedIndexTreatedAsFirst(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)
	if _, err := f.machine.HandleAction(context.Background(), testUser, "menu:steps"); err != nil {
		t.Fatalf("open steps: %v", err)
	}
	if _, err := f.machine.HandleAction(context.Background(), testUser, "step:next"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	screen, err := f.machine.HandleAction(context.Background(), testUser, "step:garbage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Step 1/2") {
		t.Fatalf("malformed index must land on the first step:\n%s", screen.Text)
	}
}

func TestSteps_WithoutLoadedSessionToasts(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "step:next")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Toast != msgStepsNotLoaded || screen.Text != "" {
		t.Fatalf("expected toast-only screen, got %+v", screen)
	}
}

func TestChecklist_ToggleRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "chk:0:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Toast != "Marked" {
		t.Fatalf("expected Marked toast, got %q", screen.Toast)
	}
	if !strings.Contains(screen.Text, "✅ 2. Deploy") {
		t.Fatalf("item not rendered as done:\n%s", screen.Text)
	}

	screen, err = f.machine.HandleAction(context.Background(), testUser, "chk:0:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Toast != "Unmarked" {
		t.Fatalf("expected Unmarked toast, got %q", screen.Toast)
	}
	if !strings.Contains(screen.Text, "☐ 2. Deploy") {
		t.Fatalf("item not rendered as open:\n%s", screen.Text)
	}
}

func TestChecklist_MalformedPayloadIsAckOnly(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "chk:zero:one")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !screen.Empty() {
		t.Fatalf("expected empty screen, got %+v", screen)
	}
}

func TestFreeText_HelpFlow(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu:help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgHelpPrompt {
		t.Fatalf("got %q", screen.Text)
	}

	screen, handled, err := f.machine.HandleText(context.Background(), testUser, "I am stuck on deploy")
	if err != nil || !handled {
		t.Fatalf("expected handled text: %v", err)
	}
	if screen.Text != msgRequestSent {
		t.Fatalf("got %q", screen.Text)
	}
	if len(f.intake.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(f.intake.submissions))
	}
	sub := f.intake.submissions[0]
	if sub.kind != types.RequestKindHelp || sub.text != "I am stuck on deploy" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if f.sessions.Get(testUser.ID).Awaiting != "" {
		t.Fatalf("capture must clear after submission")
	}
}

func TestFreeText_EmptyKeepsCapturePending(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)
	if _, err := f.machine.HandleAction(context.Background(), testUser, "menu:meeting"); err != nil {
		t.Fatalf("open meeting: %v", err)
	}

	screen, handled, err := f.machine.HandleText(context.Background(), testUser, "   ")
	if err != nil || !handled {
		t.Fatalf("expected handled text: %v", err)
	}
	if screen.Text != msgEmptyFreeText {
		t.Fatalf("got %q", screen.Text)
	}
	if f.sessions.Get(testUser.ID).Awaiting != types.RequestKindMeeting {
		t.Fatalf("capture must stay pending after empty input")
	}
	if len(f.intake.submissions) != 0 {
		t.Fatalf("no submission expected")
	}
}

func TestFreeText_IgnoredWhenNotCapturing(t *testing.T) {
	f := newFixture(t)
	_, handled, err := f.machine.HandleText(context.Background(), testUser, "random chatter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatalf("text outside capture must be ignored")
	}
}

func TestCancelInput_ClearsCapture(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)
	if _, err := f.machine.HandleAction(context.Background(), testUser, "menu:help"); err != nil {
		t.Fatalf("open help: %v", err)
	}

	screen, err := f.machine.HandleAction(context.Background(), testUser, "input_cancel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgInputCancelled {
		t.Fatalf("got %q", screen.Text)
	}
	if f.sessions.Get(testUser.ID).Awaiting != "" {
		t.Fatalf("capture must clear on cancel")
	}
}

func TestBackToMenu_RestoresTopicMenu(t *testing.T) {
	f := newFixture(t)
	f.selectTopicA(t)

	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu_back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screen.Text, "Topic A") {
		t.Fatalf("expected topic menu, got %q", screen.Text)
	}
}

func TestBackToMenu_WithoutSelection(t *testing.T) {
	f := newFixture(t)
	screen, err := f.machine.HandleAction(context.Background(), testUser, "menu_back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen.Text != msgChooseFirst {
		t.Fatalf("got %q", screen.Text)
	}
}
