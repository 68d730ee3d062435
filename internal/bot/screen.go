package bot

// UserInfo identifies the interacting user, independent of the transport.
type UserInfo struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Button is one labeled affordance on a screen. Action carries the callback
// payload; URL buttons open a link instead.
type Button struct {
	Label  string
	Action string
	URL    string
}

// Screen is what the state machine asks the transport to render: message
// text, button rows and an optional short toast acknowledgement. A screen
// with empty Text updates nothing and only toasts.
type Screen struct {
	Text    string
	Buttons [][]Button
	Toast   string
}

func (s Screen) Empty() bool {
	return s.Text == "" && len(s.Buttons) == 0 && s.Toast == ""
}

// Callback actions understood by the machine. Parameterized actions append
// ":"-separated arguments.
const (
	ActionSelectBrief  = "brief"
	ActionMenu         = "menu"
	ActionStep         = "step"
	ActionChecklistOpt = "chk"
	ActionCancelInput  = "input_cancel"
	ActionBackToMenu   = "menu_back"
)

// Menu section arguments for ActionMenu.
const (
	MenuChecklist   = "checklist"
	MenuEnvironment = "environment"
	MenuProduct     = "product"
	MenuSteps       = "steps"
	MenuHelp        = "help"
	MenuMeeting     = "meeting"
)
