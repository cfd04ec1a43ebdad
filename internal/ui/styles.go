package ui

import "github.com/charmbracelet/lipgloss"

var (
	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true)

	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)
