// ABOUTME: Shared lipgloss styles for consistent TUI appearance
// ABOUTME: Defines colors, borders, message bubbles and sidebar styles

package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - Core palette
	Primary   = lipgloss.Color("#2563EB") // Blue
	Secondary = lipgloss.Color("#10B981") // Green
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#F9FAFB") // Light

	// Colors - Extended palette
	Accent  = lipgloss.Color("#60A5FA") // Lighter blue for highlights
	Surface = lipgloss.Color("#374151") // Elevated surface background

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginBottom(1)

	// Panels
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 1)

	ActivePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	// Help text
	Help = lipgloss.NewStyle().
		Foreground(Muted).
		MarginTop(1)

	// Key style for keyboard shortcuts
	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	// Value style for emphasized data
	ValueStyle = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)

	// Message bubbles
	UserBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(Primary).
			Padding(0, 1)

	AssistantBubble = lipgloss.NewStyle().
			Foreground(Text).
			Background(Surface).
			Padding(0, 1)

	RoleLabel = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Inline error box under the chat header
	ErrorBox = lipgloss.NewStyle().
			Foreground(Danger).
			Border(lipgloss.NormalBorder()).
			BorderForeground(Danger).
			Padding(0, 1)

	// Sidebar entries
	SidebarItem = lipgloss.NewStyle().
			PaddingLeft(1)

	SidebarSelected = lipgloss.NewStyle().
			PaddingLeft(1).
			Foreground(Accent).
			Bold(true)

	Snippet = lipgloss.NewStyle().
		Foreground(Muted)

	// Placeholder for an empty transcript or thread list
	Empty = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)
)
