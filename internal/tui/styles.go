package tui

import "github.com/charmbracelet/lipgloss"

// Palette: 75 accent blue, 150 green, 203 red, 179 amber, 243 gray.
var (
	accent = lipgloss.Color("75")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	subtitleStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("246"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("150"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	helpStyle    = dimStyle.Italic(true)

	userMsgStyle      = lipgloss.NewStyle().Bold(true).Foreground(accent)
	assistantMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("254"))

	// Retrieved passages are listed under each answer.
	sourcesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("238")).
			PaddingLeft(1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	listItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)
