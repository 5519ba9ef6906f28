// ABOUTME: Landing menu shown at TUI startup
// ABOUTME: Offers login/register when signed out, and the tutor/logout when signed in

package menu

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/invayl/tutor-cli/internal/tui/icons"
)

// Action is a menu choice
type Action int

const (
	ActionLogin Action = iota
	ActionRegister
	ActionOpenTutor
	ActionLogout
	ActionQuit
)

// ActionSelectedMsg is sent when the user confirms a choice
type ActionSelectedMsg struct {
	Action Action
}

// CancelledMsg is sent when the menu is dismissed with esc
type CancelledMsg struct{}

type option struct {
	label string
	icon  icons.Icon
	value Action
}

// Menu is the landing menu as a bubbletea model
type Menu struct {
	options  []option
	selected Action
	form     *huh.Form
}

// New creates the menu for the given login state
func New(loggedIn bool) *Menu {
	m := &Menu{}
	if loggedIn {
		m.options = []option{
			{label: "Open Tutor", icon: icons.Thread, value: ActionOpenTutor},
			{label: "Logout", icon: icons.Logout, value: ActionLogout},
			{label: "Quit", icon: icons.Quit, value: ActionQuit},
		}
		m.selected = ActionOpenTutor
	} else {
		m.options = []option{
			{label: "Login", icon: icons.Login, value: ActionLogin},
			{label: "Register", icon: icons.Register, value: ActionRegister},
			{label: "Quit", icon: icons.Quit, value: ActionQuit},
		}
		m.selected = ActionLogin
	}
	m.form = m.createForm()
	return m
}

func (m *Menu) createForm() *huh.Form {
	var options []huh.Option[Action]
	for _, opt := range m.options {
		options = append(options, huh.NewOption(opt.icon.String()+" "+opt.label, opt.value))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Action]().
				Title(icons.App.String() + " Invayl Tutor").
				Description("Python, ML and DL explanations with runnable code").
				Options(options...).
				Value(&m.selected),
		),
	).WithTheme(huh.ThemeBase()).WithShowHelp(false)
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return m.form.Init()
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			return m, func() tea.Msg { return CancelledMsg{} }
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		action := m.selected
		// Ready for the next visit.
		m.form = m.createForm()
		return m, tea.Batch(m.form.Init(), func() tea.Msg { return ActionSelectedMsg{Action: action} })
	}
	return m, cmd
}

// View implements tea.Model
func (m *Menu) View() string {
	return m.form.View()
}

// Selected returns the highlighted action
func (m *Menu) Selected() Action {
	return m.selected
}

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionLogin:
		return "login"
	case ActionRegister:
		return "register"
	case ActionOpenTutor:
		return "open-tutor"
	case ActionLogout:
		return "logout"
	case ActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}
