// ABOUTME: Tests for the login and register forms
// ABOUTME: Covers cancellation, error display and submit gating

package forms

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/invayl/tutor-cli/internal/auth"
)

func TestLoginEscCancels(t *testing.T) {
	l := NewLogin()
	_, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(CancelledMsg); !ok {
		t.Error("expected CancelledMsg")
	}
}

func TestLoginSubmitOnCompletion(t *testing.T) {
	l := NewLogin()
	l.email = "  ada@example.com "
	l.password = "secret1"
	l.form.State = huh.StateCompleted

	_, cmd := l.Update(nil)
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	msg, ok := cmd().(LoginSubmittedMsg)
	if !ok {
		t.Fatal("expected LoginSubmittedMsg")
	}
	if msg.Email != "ada@example.com" {
		t.Errorf("expected trimmed email, got %q", msg.Email)
	}
	if msg.Password != "secret1" {
		t.Errorf("expected password verbatim, got %q", msg.Password)
	}
	if !l.Submitting() {
		t.Error("expected submitting state")
	}
	if !strings.Contains(l.View(), "Signing in") {
		t.Errorf("expected progress text, got %q", l.View())
	}
}

func TestLoginIgnoresKeysWhileSubmitting(t *testing.T) {
	l := NewLogin()
	l.submitting = true
	_, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no command while submitting")
	}
}

func TestLoginSetErrorKeepsValues(t *testing.T) {
	l := NewLogin()
	l.email = "ada@example.com"
	l.password = "wrong"
	l.submitting = true

	l.SetError("Invalid email or password")

	if l.Submitting() {
		t.Error("expected submitting cleared")
	}
	if l.email != "ada@example.com" {
		t.Errorf("expected email kept, got %q", l.email)
	}
	if l.form.State != huh.StateNormal {
		t.Error("expected a fresh form")
	}
	if !strings.Contains(l.View(), "Invalid email or password") {
		t.Error("expected error in view")
	}
}

func TestRequired(t *testing.T) {
	check := required("Email is required")
	if err := check("   "); err == nil || err.Error() != "Email is required" {
		t.Errorf("expected required error, got %v", err)
	}
	if err := check("x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegisterDefaultsRole(t *testing.T) {
	r := NewRegister()
	if r.reg.Role != auth.DefaultRole {
		t.Errorf("expected role %q, got %q", auth.DefaultRole, r.reg.Role)
	}
}

func TestRegisterSubmitNormalizes(t *testing.T) {
	r := NewRegister()
	r.reg.Name = " Ada "
	r.reg.Email = "ada@example.com "
	r.reg.Username = " ada"
	r.reg.Password = "secret1"
	r.form.State = huh.StateCompleted

	_, cmd := r.Update(nil)
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	msg, ok := cmd().(RegisterSubmittedMsg)
	if !ok {
		t.Fatal("expected RegisterSubmittedMsg")
	}
	if msg.Registration.Name != "Ada" || msg.Registration.Username != "ada" {
		t.Errorf("expected normalized registration, got %+v", msg.Registration)
	}
	if !r.Submitting() {
		t.Error("expected submitting state")
	}
}

func TestRegisterInvalidShowsError(t *testing.T) {
	r := NewRegister()
	r.reg.Name = "Ada"
	r.reg.Email = "ada@example.com"
	r.reg.Username = "ad"
	r.reg.Password = "secret1"
	r.form.State = huh.StateCompleted

	r.Update(nil)

	if r.Submitting() {
		t.Error("expected no submission")
	}
	if r.Error() != "Username must be at least 3 chars" {
		t.Errorf("unexpected error %q", r.Error())
	}
}

func TestRegisterEscCancels(t *testing.T) {
	r := NewRegister()
	_, cmd := r.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(CancelledMsg); !ok {
		t.Error("expected CancelledMsg")
	}
}
