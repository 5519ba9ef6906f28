// ABOUTME: Login form as a bubbletea model
// ABOUTME: Collects email and password and reports submission to the root app

package forms

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/invayl/tutor-cli/internal/tui/styles"
)

// LoginSubmittedMsg is sent when the user submits the login form
type LoginSubmittedMsg struct {
	Email    string
	Password string
}

// CancelledMsg is sent when a form is dismissed with esc
type CancelledMsg struct{}

// Login collects credentials
type Login struct {
	form       *huh.Form
	email      string
	password   string
	err        string
	submitting bool
}

// NewLogin creates an empty login form
func NewLogin() *Login {
	l := &Login{}
	l.form = l.createForm()
	return l
}

func (l *Login) createForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&l.email).
				Validate(required("Email is required")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&l.password).
				Validate(required("Password is required")),
		).Title("Login").
			Description("Sign in to continue to Invayl Tutor"),
	).WithTheme(createTheme()).WithShowHelp(false)
}

func required(message string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	}
}

// Init implements tea.Model
func (l *Login) Init() tea.Cmd {
	return l.form.Init()
}

// Update implements tea.Model
func (l *Login) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.String() == "esc" {
			return l, func() tea.Msg { return CancelledMsg{} }
		}
		if l.submitting {
			return l, nil
		}
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}

	if l.form.State == huh.StateCompleted && !l.submitting {
		l.submitting = true
		l.err = ""
		submitted := LoginSubmittedMsg{Email: strings.TrimSpace(l.email), Password: l.password}
		return l, func() tea.Msg { return submitted }
	}
	return l, cmd
}

// SetError shows a failed attempt and re-opens the form with the values kept
func (l *Login) SetError(msg string) tea.Cmd {
	l.err = msg
	l.submitting = false
	l.form = l.createForm()
	return l.form.Init()
}

// Submitting reports whether a login request is outstanding
func (l *Login) Submitting() bool {
	return l.submitting
}

// Error returns the last error shown
func (l *Login) Error() string {
	return l.err
}

// View implements tea.Model
func (l *Login) View() string {
	if l.submitting {
		return lipgloss.NewStyle().Foreground(styles.Muted).Render("Signing in…")
	}
	var sb strings.Builder
	sb.WriteString(l.form.View())
	sb.WriteString("\n")
	sb.WriteString(styles.Help.Render("Tab to move between fields, Enter to sign in"))
	if l.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.ErrorBox.Render(l.err))
	}
	return sb.String()
}
