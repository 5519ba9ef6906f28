// ABOUTME: Registration form as a bubbletea model
// ABOUTME: Validates fields locally before the root app creates the account

package forms

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/tui/styles"
)

// RegisterSubmittedMsg is sent when the registration form passes validation
type RegisterSubmittedMsg struct {
	Registration auth.Registration
}

// Register collects a new account
type Register struct {
	form       *huh.Form
	reg        auth.Registration
	err        string
	submitting bool
}

// NewRegister creates an empty registration form
func NewRegister() *Register {
	r := &Register{reg: auth.Registration{Role: auth.DefaultRole}}
	r.form = r.createForm()
	return r
}

func (r *Register) createForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&r.reg.Name).
				Validate(auth.ValidateName),
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&r.reg.Email).
				Validate(auth.ValidateEmail),
			huh.NewInput().
				Title("Username").
				Description("At least 3 characters").
				Value(&r.reg.Username).
				Validate(auth.ValidateUsername),
			huh.NewInput().
				Title("Password").
				Description("At least 6 characters").
				EchoMode(huh.EchoModePassword).
				Value(&r.reg.Password).
				Validate(auth.ValidatePassword),
		).Title("Create account").
			Description("You will be signed in right after registering"),
	).WithTheme(createTheme()).WithShowHelp(false)
}

// Init implements tea.Model
func (r *Register) Init() tea.Cmd {
	return r.form.Init()
}

// Update implements tea.Model
func (r *Register) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.String() == "esc" {
			return r, func() tea.Msg { return CancelledMsg{} }
		}
		if r.submitting {
			return r, nil
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted && !r.submitting {
		reg := r.reg.Normalize()
		if err := reg.Validate(); err != nil {
			return r, r.SetError(err.Error())
		}
		r.submitting = true
		r.err = ""
		return r, func() tea.Msg { return RegisterSubmittedMsg{Registration: reg} }
	}
	return r, cmd
}

// SetError shows a failed attempt and re-opens the form with the values kept
func (r *Register) SetError(msg string) tea.Cmd {
	r.err = msg
	r.submitting = false
	r.form = r.createForm()
	return r.form.Init()
}

// Submitting reports whether a registration request is outstanding
func (r *Register) Submitting() bool {
	return r.submitting
}

// Error returns the last error shown
func (r *Register) Error() string {
	return r.err
}

// View implements tea.Model
func (r *Register) View() string {
	if r.submitting {
		return lipgloss.NewStyle().Foreground(styles.Muted).Render("Creating account…")
	}
	var sb strings.Builder
	sb.WriteString(r.form.View())
	sb.WriteString("\n")
	sb.WriteString(styles.Help.Render("All fields are required"))
	if r.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.ErrorBox.Render(r.err))
	}
	return sb.String()
}
