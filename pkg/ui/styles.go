package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// UI color scheme
var (
	red    = lipgloss.AdaptiveColor{Light: "#FE5F86", Dark: "#FE5F86"}
	indigo = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	green  = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#02BF87"}
	yellow = lipgloss.AdaptiveColor{Light: "#FFC107", Dark: "#FFD54F"}
	gray   = lipgloss.AdaptiveColor{Light: "#9E9E9E", Dark: "#BDBDBD"}
)

// Card styles
var (
	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(indigo).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(indigo).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(indigo).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(gray)

	okStyle = lipgloss.NewStyle().
		Foreground(green)

	failStyle = lipgloss.NewStyle().
			Foreground(red)

	ruleStyle = lipgloss.NewStyle().
			Foreground(yellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1)
)
