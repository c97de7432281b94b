package tui

import "github.com/charmbracelet/lipgloss"

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

// Brand colors
const (
	colorPrimary   Color = "99" // Purple - app name, titles
	colorSecondary Color = "86" // Cyan - subtitles, tabs
)

// Semantic colors
const (
	colorError     Color = "196" // Bright red
	colorHighlight Color = "255" // White - emphasis
	colorMuted     Color = "241" // Gray - secondary text
	colorNormal    Color = "250" // Default text
	colorSubtle    Color = "245" // Light gray - labels
)

// Session state colors
const (
	colorRunning   Color = "2" // Green - agent working
	colorWaiting   Color = "3" // Yellow - waiting on user
	colorCompleted Color = "8" // Gray - finished
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(1, 0)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(1, 0)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true).
			Padding(0, 2).
			Underline(true)

	userMsgStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)

	assistantMsgStyle = lipgloss.NewStyle().
				Foreground(colorNormal)

	systemMsgStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	errorMsgStyle = lipgloss.NewStyle().
			Foreground(colorError)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Italic(true)

	confidenceStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)
)

// sessionStatusStyle picks a color for the agent session status badge.
func sessionStatusStyle(status string) lipgloss.Style {
	switch status {
	case "running", "working":
		return lipgloss.NewStyle().Foreground(colorRunning)
	case "completed", "finished":
		return lipgloss.NewStyle().Foreground(colorCompleted)
	default:
		return lipgloss.NewStyle().Foreground(colorWaiting)
	}
}
