// ABOUTME: Chat screen body: session header, transcript and composer
// ABOUTME: Enter sends, alt+enter inserts a newline, the transcript scrolls with pgup/pgdown

package chatview

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/invayl/tutor-cli/internal/chat"
	"github.com/invayl/tutor-cli/internal/tui/icons"
	"github.com/invayl/tutor-cli/internal/tui/styles"
)

const (
	inputHeight = 3
	minWidth    = 20
)

// SendMsg asks the root model to send the composed text
type SendMsg struct {
	Text string
}

// Model is the chat screen body
type Model struct {
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	sessionID string
	messages  []chat.Message
	pending   string
	sending   bool
	err       string

	width  int
	height int
}

// New creates an empty chat view with the composer focused
func New() *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about Python, ML or DL…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Accent)

	m := &Model{
		viewport: viewport.New(80, 10),
		input:    ta,
		spinner:  sp,
	}
	m.SetSize(80, 24)
	return m
}

// SetSize lays out the transcript above the composer
func (m *Model) SetSize(width, height int) {
	if width < minWidth {
		width = minWidth
	}
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.resizeViewport()
	m.refresh()
}

func (m *Model) resizeViewport() {
	// header, status line, composer and its border
	h := m.height - 2 - (inputHeight + 2)
	if m.err != "" {
		h -= lipgloss.Height(m.errorView())
	}
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// SetConversation shows a session's messages; an empty id is a new conversation
func (m *Model) SetConversation(sessionID string, messages []chat.Message) {
	m.sessionID = sessionID
	m.messages = messages
	m.refresh()
}

// SessionID returns the session shown in the header
func (m *Model) SessionID() string {
	return m.sessionID
}

// SendFinished ends the sending state; the composer keeps its text when the send failed
func (m *Model) SendFinished(errMsg string) {
	m.sending = false
	m.pending = ""
	if errMsg == "" {
		m.input.Reset()
	}
	m.SetError(errMsg)
}

// SetError shows or clears the inline error
func (m *Model) SetError(msg string) {
	m.err = msg
	m.resizeViewport()
	m.refresh()
}

// Error returns the inline error text
func (m *Model) Error() string {
	return m.err
}

// Sending reports whether a send is in flight
func (m *Model) Sending() bool {
	return m.sending
}

// Value returns the composer text
func (m *Model) Value() string {
	return m.input.Value()
}

// SetValue replaces the composer text
func (m *Model) SetValue(s string) {
	m.input.SetValue(s)
}

// Focus moves keyboard input to the composer
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Blur releases the composer
func (m *Model) Blur() {
	m.input.Blur()
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, m.send()
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.sending {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) send() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.sending {
		return nil
	}
	m.sending = true
	m.pending = text
	m.err = ""
	m.resizeViewport()
	m.refresh()
	return tea.Batch(
		func() tea.Msg { return SendMsg{Text: text} },
		m.spinner.Tick,
	)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *Model) transcript() string {
	if len(m.messages) == 0 && m.pending == "" {
		hint := lipgloss.JoinVertical(lipgloss.Center,
			styles.Empty.Render("Start a conversation with Invayl Tutor"),
			styles.Snippet.Render(icons.Send.String()+" Enter sends, Alt+Enter adds a line"))
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, hint)
	}

	var blocks []string
	for _, msg := range m.messages {
		blocks = append(blocks, m.bubble(msg.Role, msg.Content))
	}
	if m.pending != "" {
		blocks = append(blocks, m.bubble(chat.RoleUser, m.pending))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) bubble(role chat.Role, content string) string {
	maxWidth := m.width * 3 / 4
	if maxWidth < minWidth {
		maxWidth = minWidth
	}

	label := icons.Assistant.String() + " Tutor"
	style := styles.AssistantBubble
	align := lipgloss.Left
	if role == chat.RoleUser {
		label = icons.User.String() + " You"
		style = styles.UserBubble
		align = lipgloss.Right
	}

	body := style.Render(lipgloss.NewStyle().Width(maxWidth - 2).Render(content))
	if lipgloss.Width(content)+2 < maxWidth && !strings.Contains(content, "\n") {
		body = style.Render(content)
	}
	block := lipgloss.JoinVertical(align, styles.RoleLabel.Render(label), body)
	return lipgloss.PlaceHorizontal(m.width, align, block)
}

func (m *Model) header() string {
	id := m.sessionID
	if id == "" {
		id = "(new after first message)"
	}
	return styles.KeyStyle.Render("Session:") + " " + styles.ValueStyle.Render(id)
}

func (m *Model) status() string {
	if m.sending {
		return m.spinner.View() + " " + styles.Snippet.Render("Thinking…")
	}
	return ""
}

func (m *Model) errorView() string {
	return styles.ErrorBox.Width(m.width - 2).Render(icons.Warning.String() + " " + m.err)
}

// View implements tea.Model
func (m *Model) View() string {
	parts := []string{m.header()}
	if m.err != "" {
		parts = append(parts, m.errorView())
	}
	parts = append(parts, m.viewport.View(), m.status(), styles.Panel.Render(m.input.View()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
