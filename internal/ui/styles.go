package ui

import "github.com/charmbracelet/lipgloss/v2"

// Color constants
const (
	ColorYellow   = "3"
	ColorDarkGrey = "238"
)

var (
	// Help line: the Normal variant blinks to draw attention to the shortcuts
	HelpStyle       = lipgloss.NewStyle()
	HelpNormalStyle = lipgloss.NewStyle().Blink(true)

	// Input text
	InputNormalStyle  = lipgloss.NewStyle()
	InputEditingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow))

	// Frames use the terminal's default colors
	FrameBorderStyle = lipgloss.NewStyle()
	FrameTitleStyle  = lipgloss.NewStyle()

	// In-flight indicator
	BusyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.White).
			Background(lipgloss.Color(ColorDarkGrey)).
			Padding(0, 1)
)
