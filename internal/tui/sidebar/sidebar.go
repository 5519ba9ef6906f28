// ABOUTME: Thread list shown beside the chat transcript
// ABOUTME: Lists saved sessions newest first with a "New chat" entry on top

package sidebar

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/invayl/tutor-cli/internal/chat"
	"github.com/invayl/tutor-cli/internal/tui/icons"
	"github.com/invayl/tutor-cli/internal/tui/styles"
	"github.com/invayl/tutor-cli/internal/tui/widgets"
)

// Width is the sidebar's default column width
const Width = 32

// NewChatMsg is sent when "New chat" is chosen
type NewChatMsg struct{}

// ThreadSelectedMsg is sent when a saved session is chosen
type ThreadSelectedMsg struct {
	ID string
}

// Sidebar lists thread previews
type Sidebar struct {
	threads   []chat.ThreadPreview
	currentID string
	cursor    int
	focused   bool
	visible   bool
	loading   bool
	width     int
	height    int
	now       func() time.Time
}

// New creates a visible, unfocused sidebar
func New() *Sidebar {
	return &Sidebar{
		visible: true,
		width:   Width,
		now:     time.Now,
	}
}

// SetThreads replaces the list, keeping the cursor on the same session if it is still present
func (s *Sidebar) SetThreads(threads []chat.ThreadPreview, currentID string) {
	selected := s.selectedID()
	s.threads = threads
	s.currentID = currentID
	s.loading = false

	s.cursor = 0
	for i, t := range threads {
		if t.ID == selected && selected != "" {
			s.cursor = i + 1
			break
		}
	}
}

// SetLoading toggles the loading hint shown while threads are fetched
func (s *Sidebar) SetLoading(loading bool) {
	s.loading = loading
}

// SetSize sets the available height; width stays fixed
func (s *Sidebar) SetSize(width, height int) {
	if width > 0 {
		s.width = width
	}
	s.height = height
}

// Focus gives keyboard control to the sidebar
func (s *Sidebar) Focus() { s.focused = true }

// Blur returns keyboard control to the composer
func (s *Sidebar) Blur() { s.focused = false }

// Focused reports keyboard focus
func (s *Sidebar) Focused() bool { return s.focused }

// Toggle shows or hides the sidebar; a hidden sidebar drops focus
func (s *Sidebar) Toggle() {
	s.visible = !s.visible
	if !s.visible {
		s.focused = false
	}
}

// Visible reports whether the sidebar is drawn
func (s *Sidebar) Visible() bool { return s.visible }

// Width returns the rendered width including the border, or 0 when hidden
func (s *Sidebar) Width() int {
	if !s.visible {
		return 0
	}
	return s.width
}

// Cursor returns the highlighted row; 0 is "New chat"
func (s *Sidebar) Cursor() int { return s.cursor }

func (s *Sidebar) selectedID() string {
	if s.cursor == 0 || s.cursor > len(s.threads) {
		return ""
	}
	return s.threads[s.cursor-1].ID
}

// Init implements tea.Model
func (s *Sidebar) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *Sidebar) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !s.focused || !s.visible {
		return s, nil
	}

	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.threads) {
			s.cursor++
		}
	case "home", "g":
		s.cursor = 0
	case "end", "G":
		s.cursor = len(s.threads)
	case "enter":
		if s.cursor == 0 {
			return s, func() tea.Msg { return NewChatMsg{} }
		}
		id := s.threads[s.cursor-1].ID
		return s, func() tea.Msg { return ThreadSelectedMsg{ID: id} }
	}
	return s, nil
}

// View implements tea.Model
func (s *Sidebar) View() string {
	if !s.visible {
		return ""
	}

	inner := s.width - 4
	var b strings.Builder

	b.WriteString(styles.Title.Render("Sessions"))
	b.WriteString("\n")

	b.WriteString(s.row(0, icons.NewChat.String()+" New chat", inner))
	b.WriteString("\n\n")

	switch {
	case s.loading && len(s.threads) == 0:
		b.WriteString(styles.Empty.Render("Loading…"))
	case len(s.threads) == 0:
		b.WriteString(styles.Empty.Render("No saved sessions yet"))
	default:
		for i, t := range s.visibleThreads() {
			idx := i + s.offset() + 1
			label := t.LastSnippet
			if label == "" {
				label = t.ID
			}
			b.WriteString(s.row(idx, icons.Thread.String()+" "+label, inner))
			b.WriteString("\n")
			meta := "  " + widgets.CountBadge(t.Count)
			if !t.LastAt.IsZero() {
				meta += styles.Snippet.Render(" " + humanize.RelTime(t.LastAt, s.now(), "ago", "from now"))
			}
			b.WriteString(ansi.Truncate(meta, inner, "…"))
			b.WriteString("\n")
		}
	}

	panel := styles.Panel
	if s.focused {
		panel = styles.ActivePanel
	}
	panel = panel.Width(s.width - 2)
	if s.height > 2 {
		panel = panel.Height(s.height - 2)
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (s *Sidebar) row(idx int, label string, width int) string {
	label = ansi.Truncate(strings.Join(strings.Fields(label), " "), width-3, "…")
	switch {
	case idx == s.cursor && s.focused:
		return "> " + styles.SidebarSelected.Render(label)
	case idx > 0 && s.threads[idx-1].ID == s.currentID:
		return "  " + styles.SidebarSelected.Render(label)
	default:
		return "  " + styles.SidebarItem.Render(label)
	}
}

// rowsAvailable is the number of threads that fit; each takes two lines
func (s *Sidebar) rowsAvailable() int {
	if s.height <= 0 {
		return len(s.threads)
	}
	// border, title, new chat and a spacer
	n := (s.height - 6) / 2
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Sidebar) offset() int {
	n := s.rowsAvailable()
	if s.cursor <= n {
		return 0
	}
	return s.cursor - n
}

func (s *Sidebar) visibleThreads() []chat.ThreadPreview {
	start := s.offset()
	end := start + s.rowsAvailable()
	if end > len(s.threads) {
		end = len(s.threads)
	}
	return s.threads[start:end]
}
