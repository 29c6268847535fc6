package monitor

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	primaryColor = lipgloss.Color("212")
	errorColor   = lipgloss.Color("196")
	mutedColor   = lipgloss.Color("241")
	borderColor  = lipgloss.Color("240")
	bgSecondary  = lipgloss.Color("235")
)

// Button styles
var (
	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("238")).
			Padding(0, 2)

	buttonFocusedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(primaryColor).
				Bold(true).
				Padding(0, 2)

	buttonHoverStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("245")).
				Padding(0, 2)

	buttonDangerFocusedStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("255")).
					Background(errorColor).
					Bold(true).
					Padding(0, 2)

	buttonDangerHoverStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("203")).
				Padding(0, 2)
)

// Dialog styles
var (
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Background(bgSecondary).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	errorBannerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(errorColor).
				Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// buttonStyleFor picks the style for a button in the given state.
// Danger buttons keep the plain idle look.
func buttonStyleFor(b Button, focused, hovered bool) lipgloss.Style {
	switch {
	case focused && b.Danger:
		return buttonDangerFocusedStyle
	case focused:
		return buttonFocusedStyle
	case hovered && b.Danger:
		return buttonDangerHoverStyle
	case hovered:
		return buttonHoverStyle
	default:
		return buttonStyle
	}
}
