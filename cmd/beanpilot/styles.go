package main

import "github.com/charmbracelet/lipgloss"

// Styles for command output.
var (
	primaryColor = lipgloss.Color("#7571F9")
	successColor = lipgloss.Color("#02BA84")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#ED567A")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	accountStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)
)
