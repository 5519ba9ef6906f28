// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Manages screen state and routes keyboard input to child components

package tui

import (
	"context"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/invayl/tutor-cli/internal/app"
	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/chat"
	"github.com/invayl/tutor-cli/internal/client"
	"github.com/invayl/tutor-cli/internal/tui/chatview"
	"github.com/invayl/tutor-cli/internal/tui/forms"
	"github.com/invayl/tutor-cli/internal/tui/icons"
	"github.com/invayl/tutor-cli/internal/tui/menu"
	"github.com/invayl/tutor-cli/internal/tui/sidebar"
	"github.com/invayl/tutor-cli/internal/tui/styles"
	"github.com/invayl/tutor-cli/internal/tui/widgets"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenLogin
	ScreenRegister
	ScreenChat
)

// Layout constants
const (
	minTerminalWidth = 80 // Frame never renders narrower than this
	frameLines       = 2  // Header and footer
)

// bootDoneMsg is sent when the saved session has been restored
type bootDoneMsg struct {
	err error
}

// loginDoneMsg is sent when a login attempt completes
type loginDoneMsg struct {
	err error
}

// registerDoneMsg is sent when registration (and the login that follows) completes
type registerDoneMsg struct {
	err error
}

// sendDoneMsg is sent when a chat message round trip completes
type sendDoneMsg struct {
	sessionID string
	err       error
}

// historyLoadedMsg is sent when a session's history has been fetched
type historyLoadedMsg struct {
	sessionID string
	err       error
}

// threadsLoadedMsg is sent when the thread list has been fetched
type threadsLoadedMsg struct {
	err error
}

// App is the root model for the TUI
type App struct {
	app    *app.App
	ctx    context.Context
	screen Screen
	width  int
	height int
	notice string // One-line status shown in the footer
	booted bool

	// Child models
	menu     *menu.Menu
	login    *forms.Login
	register *forms.Register
	sidebar  *sidebar.Sidebar
	chatView *chatview.Model
}

// New creates a new TUI application
func New(ctx context.Context, a *app.App) *App {
	return &App{
		app:      a,
		ctx:      ctx,
		screen:   ScreenMenu,
		menu:     menu.New(a.Auth.State().LoggedIn()),
		sidebar:  sidebar.New(),
		chatView: chatview.New(),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.boot(), a.menu.Init())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		// Forward to huh forms so they can size themselves
		var cmds []tea.Cmd
		_, cmd := a.menu.Update(msg)
		cmds = append(cmds, cmd)
		if a.login != nil {
			_, cmd = a.login.Update(msg)
			cmds = append(cmds, cmd)
		}
		if a.register != nil {
			_, cmd = a.register.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		// Handle global quit
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Route to current screen
		switch a.screen {
		case ScreenMenu:
			return a.updateMenu(msg)
		case ScreenLogin:
			return a.updateLogin(msg)
		case ScreenRegister:
			return a.updateRegister(msg)
		case ScreenChat:
			return a.updateChat(msg)
		}

	case bootDoneMsg:
		a.booted = true
		if msg.err != nil {
			a.notice = "Could not restore session"
			slog.Warn("Boot failed", "error", msg.err)
		}
		a.menu = menu.New(a.loggedIn())
		a.syncChat()
		return a, a.menu.Init()

	case menu.ActionSelectedMsg:
		return a.handleAction(msg.Action)

	case menu.CancelledMsg:
		return a, tea.Quit

	case forms.CancelledMsg:
		return a.showMenu("")

	case forms.LoginSubmittedMsg:
		return a, a.doLogin(msg.Email, msg.Password)

	case forms.RegisterSubmittedMsg:
		return a, a.doRegister(msg.Registration)

	case loginDoneMsg:
		if msg.err != nil {
			if a.login == nil {
				return a, nil
			}
			return a, a.login.SetError(a.app.Auth.State().Error)
		}
		a.login = nil
		return a.openChat()

	case registerDoneMsg:
		if msg.err != nil {
			if a.register == nil {
				return a, nil
			}
			return a, a.register.SetError(client.ErrorMessage(msg.err, "Registration failed"))
		}
		a.register = nil
		return a.openChat()

	case chatview.SendMsg:
		return a, a.sendMessage(msg.Text)

	case sendDoneMsg:
		errMsg := ""
		if msg.err != nil {
			errMsg = a.app.Chat.State().Error
			if errMsg == "" {
				errMsg = client.ErrorMessage(msg.err, "Failed to send message")
			}
		}
		a.chatView.SendFinished(errMsg)
		a.syncChat()
		return a, nil

	case sidebar.NewChatMsg:
		a.app.Chat.StartNewSession()
		a.chatView.SetError("")
		a.sidebar.Blur()
		a.syncChat()
		return a, a.chatView.Focus()

	case sidebar.ThreadSelectedMsg:
		a.app.Chat.SetCurrentSession(msg.ID)
		a.app.Chat.ClearError()
		a.chatView.SetError("")
		a.sidebar.Blur()
		a.syncChat()
		return a, tea.Batch(a.chatView.Focus(), a.fetchHistory(msg.ID))

	case historyLoadedMsg:
		if msg.err != nil && msg.sessionID == a.app.Chat.State().CurrentSessionID {
			a.chatView.SetError(client.ErrorMessage(msg.err, "Failed to load history"))
		}
		a.syncChat()
		return a, nil

	case threadsLoadedMsg:
		if msg.err != nil {
			a.chatView.SetError(client.ErrorMessage(msg.err, "Failed to load sessions"))
		}
		a.syncChat()
		return a, nil

	default:
		// Forward unknown messages to the active child (huh internals, spinner, cursor blink)
		switch a.screen {
		case ScreenMenu:
			_, cmd := a.menu.Update(msg)
			return a, cmd
		case ScreenLogin:
			if a.login != nil {
				_, cmd := a.login.Update(msg)
				return a, cmd
			}
		case ScreenRegister:
			if a.register != nil {
				_, cmd := a.register.Update(msg)
				return a, cmd
			}
		case ScreenChat:
			_, cmd := a.chatView.Update(msg)
			return a, cmd
		}
	}

	return a, nil
}

func (a *App) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	model, cmd := a.menu.Update(msg)
	a.menu = model.(*menu.Menu)
	return a, cmd
}

func (a *App) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.login == nil {
		return a, nil
	}
	model, cmd := a.login.Update(msg)
	a.login = model.(*forms.Login)
	return a, cmd
}

func (a *App) updateRegister(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.register == nil {
		return a, nil
	}
	model, cmd := a.register.Update(msg)
	a.register = model.(*forms.Register)
	return a, cmd
}

func (a *App) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if a.sidebar.Focused() {
			a.sidebar.Blur()
			return a, a.chatView.Focus()
		}
		return a.showMenu("")
	case "ctrl+s":
		a.sidebar.Toggle()
		a.layout()
		if !a.sidebar.Focused() {
			return a, a.chatView.Focus()
		}
		return a, nil
	case "tab":
		if !a.sidebar.Visible() {
			return a, nil
		}
		if a.sidebar.Focused() {
			a.sidebar.Blur()
			return a, a.chatView.Focus()
		}
		a.sidebar.Focus()
		a.chatView.Blur()
		return a, nil
	case "ctrl+n":
		return a.Update(sidebar.NewChatMsg{})
	case "ctrl+r":
		a.sidebar.SetLoading(true)
		return a, a.fetchThreads()
	}

	if a.sidebar.Focused() {
		_, cmd := a.sidebar.Update(msg)
		return a, cmd
	}
	_, cmd := a.chatView.Update(msg)
	return a, cmd
}

func (a *App) handleAction(action menu.Action) (tea.Model, tea.Cmd) {
	a.notice = ""
	switch action {
	case menu.ActionLogin:
		a.login = forms.NewLogin()
		a.screen = ScreenLogin
		return a, a.login.Init()

	case menu.ActionRegister:
		a.register = forms.NewRegister()
		a.screen = ScreenRegister
		return a, a.register.Init()

	case menu.ActionOpenTutor:
		if !a.loggedIn() {
			return a.showMenu("Please log in first")
		}
		return a.openChat()

	case menu.ActionLogout:
		if err := a.app.Logout(); err != nil {
			slog.Warn("Logout failed to clear storage", "error", err)
		}
		a.sidebar.SetThreads(nil, "")
		a.chatView.SetValue("")
		a.chatView.SetError("")
		return a.showMenu("Logged out")

	case menu.ActionQuit:
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) showMenu(notice string) (tea.Model, tea.Cmd) {
	a.notice = notice
	a.login = nil
	a.register = nil
	a.sidebar.Blur()
	a.menu = menu.New(a.loggedIn())
	a.screen = ScreenMenu
	return a, a.menu.Init()
}

// openChat shows the chat screen and refreshes the thread list and current session
func (a *App) openChat() (tea.Model, tea.Cmd) {
	a.screen = ScreenChat
	a.menu = menu.New(true)
	a.layout()
	a.syncChat()

	cmds := []tea.Cmd{a.chatView.Focus(), a.fetchThreads()}
	a.sidebar.SetLoading(true)
	if id := a.app.Chat.State().CurrentSessionID; id != "" {
		cmds = append(cmds, a.fetchHistory(id))
	}
	return a, tea.Batch(cmds...)
}

// syncChat copies store state into the chat view and sidebar
func (a *App) syncChat() {
	st := a.app.Chat.State()
	a.chatView.SetConversation(st.CurrentSessionID, a.app.Chat.CurrentMessages())
	a.sidebar.SetThreads(st.Threads, st.CurrentSessionID)
}

func (a *App) loggedIn() bool {
	return a.app.Auth.State().LoggedIn()
}

// layout sizes the chat screen to the frame
func (a *App) layout() {
	h := a.contentHeight()
	a.sidebar.SetSize(0, h)
	w := a.frameWidth() - a.sidebar.Width()
	if a.sidebar.Visible() {
		w-- // gap
	}
	a.chatView.SetSize(w, h)
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenMenu:
		content = a.viewMenu()
	case ScreenLogin:
		if a.login != nil {
			content = a.login.View()
		}
	case ScreenRegister:
		if a.register != nil {
			content = a.register.View()
		}
	case ScreenChat:
		content = a.viewChat()
	default:
		content = a.viewMenu()
	}

	return a.wrapWithFrame(content)
}

// viewMenu renders the menu screen
func (a *App) viewMenu() string {
	if !a.booted {
		return styles.Subtitle.Render("Restoring session…")
	}
	return a.menu.View()
}

// viewChat renders the sidebar beside the transcript
func (a *App) viewChat() string {
	if !a.sidebar.Visible() {
		return a.chatView.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, a.sidebar.View(), " ", a.chatView.View())
}

// frameWidth is the terminal width less one column, never below the minimum
func (a *App) frameWidth() int {
	width := a.width - 1
	if width < minTerminalWidth {
		width = minTerminalWidth
	}
	return width
}

// contentHeight calculates the height available between header and footer
func (a *App) contentHeight() int {
	h := a.height - frameLines
	if h < 10 {
		h = 10
	}
	return h
}

// renderHeader creates the header bar with app branding and the signed-in user
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := " " + icons.App.String() + " " + titleStyle.Render("Invayl Tutor") + " "

	rightText := ""
	st := a.app.Auth.State()
	if st.LoggedIn() {
		rightText = " " + contextStyle.Render("Hi, "+auth.DisplayName(st.User)) + " "
	} else if a.screen != ScreenMenu {
		rightText = " " + widgets.AuthBadge(st.Status) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╭─") + leftText +
		borderStyle.Render(strings.Repeat("─", fillWidth)) +
		rightText + borderStyle.Render("─╮")
}

// shortcuts lists the keys of the current screen
func (a *App) shortcuts() []string {
	switch a.screen {
	case ScreenMenu:
		return []string{"↑↓ Navigate", "Enter Select", "q Quit"}
	case ScreenLogin, ScreenRegister:
		return []string{"Tab Next", "Enter Submit", "Esc Back"}
	case ScreenChat:
		if a.sidebar.Focused() {
			return []string{"↑↓ Navigate", "Enter Open", "Tab Composer", "^S Hide", "Esc Back"}
		}
		return []string{"Enter Send", "Alt+Enter Newline", "Tab Sessions", "^S Sidebar", "^N New", "Esc Menu"}
	}
	return nil
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)

	// Build styled shortcuts
	shortcuts := a.shortcuts()
	var styledShortcuts []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			styledShortcuts = append(styledShortcuts, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
		} else {
			styledShortcuts = append(styledShortcuts, s)
		}
	}

	leftText := " " + strings.Join(styledShortcuts, "  ") + " "

	rightText := ""
	if a.notice != "" {
		rightText = " " + widgets.StatusText(a.notice, widgets.StatusInfo) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╰─ and ─╯
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╰─") + leftText +
		borderStyle.Render(strings.Repeat("─", fillWidth)) +
		rightText + borderStyle.Render("─╯")
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// boot restores the saved session and refreshes it in the background
func (a *App) boot() tea.Cmd {
	return func() tea.Msg {
		return bootDoneMsg{err: a.app.Boot(a.ctx)}
	}
}

func (a *App) doLogin(email, password string) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: a.app.Auth.Login(a.ctx, email, password)}
	}
}

func (a *App) doRegister(r auth.Registration) tea.Cmd {
	return func() tea.Msg {
		return registerDoneMsg{err: a.app.Auth.Register(a.ctx, r)}
	}
}

func (a *App) sendMessage(text string) tea.Cmd {
	store := a.app.Chat
	sessionID := store.State().CurrentSessionID
	return func() tea.Msg {
		sid, err := store.SendMessage(a.ctx, text, sessionID)
		return sendDoneMsg{sessionID: sid, err: err}
	}
}

func (a *App) fetchHistory(sessionID string) tea.Cmd {
	store := a.app.Chat
	limit := a.app.Config.HistoryLimit
	return func() tea.Msg {
		return historyLoadedMsg{sessionID: sessionID, err: store.FetchHistory(a.ctx, sessionID, limit)}
	}
}

func (a *App) fetchThreads() tea.Cmd {
	store := a.app.Chat
	limit := a.app.Config.ThreadsLimit
	return func() tea.Msg {
		return threadsLoadedMsg{err: store.FetchThreads(a.ctx, limit, 0, chat.DefaultOwner)}
	}
}

// Run starts the TUI
func Run(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(
		New(ctx, a),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
