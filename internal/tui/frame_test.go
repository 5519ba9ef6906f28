// ABOUTME: Test to verify header/footer width alignment
// ABOUTME: Ensures frame renders at correct terminal width on every screen

package tui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/invayl/tutor-cli/internal/tui/forms"
)

func checkFrame(t *testing.T, view string, targetWidth int) {
	t.Helper()

	// Frame uses width-1 to prevent wrapping on some terminals,
	// but clamps to minimum of 80 for usability
	expectedWidth := targetWidth - 1
	if expectedWidth < 80 {
		expectedWidth = 80
	}

	lines := strings.Split(view, "\n")
	headerFound := false
	footerFound := false

	for _, line := range lines {
		// Header starts with ╭ at the beginning of the line
		if strings.HasPrefix(line, "╭") {
			headerFound = true
			if w := lipgloss.Width(line); w != expectedWidth {
				t.Errorf("Header width mismatch at width %d: expected %d, got %d", targetWidth, expectedWidth, w)
				t.Logf("Header line: %q", line)
			}
		}

		// Footer starts with ╰; content panels also use rounded corners so
		// only the last line is the frame footer
		if strings.HasPrefix(line, "╰─") && line == lines[len(lines)-1] {
			footerFound = true
			if w := lipgloss.Width(line); w != expectedWidth {
				t.Errorf("Footer width mismatch at width %d: expected %d, got %d", targetWidth, expectedWidth, w)
				t.Logf("Footer line: %q", line)
			}
		}
	}

	if !headerFound {
		t.Error("Header not found in output")
	}
	if !footerFound {
		t.Error("Footer not found in output")
	}
}

func TestFrameAlignment(t *testing.T) {
	widths := []int{60, 80, 100, 120}

	for _, targetWidth := range widths {
		t.Run(fmt.Sprintf("menu-%d", targetWidth), func(t *testing.T) {
			app, _ := newTestApp(t)
			app.Update(app.boot()())

			model, _ := app.Update(tea.WindowSizeMsg{Width: targetWidth, Height: 30})
			app = model.(*App)

			checkFrame(t, app.View(), targetWidth)
		})

		t.Run(fmt.Sprintf("chat-%d", targetWidth), func(t *testing.T) {
			app, _ := newTestApp(t)
			_, cmd := app.Update(forms.LoginSubmittedMsg{Email: "ada@example.com", Password: "secret1"})
			app.Update(cmd())

			model, _ := app.Update(tea.WindowSizeMsg{Width: targetWidth, Height: 30})
			app = model.(*App)

			checkFrame(t, app.View(), targetWidth)
		})
	}
}
