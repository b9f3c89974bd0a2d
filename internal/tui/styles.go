package tui

import (
	"charm.land/lipgloss/v2"

	"tasnim.dev/eksops/internal/tui/theme"
)

var (
	promptStyle = theme.PromptBoxStyle

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Warning)

	detailStyle = theme.MutedStyle

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(theme.Primary).
			Padding(0, 1)

	choiceStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1)

	helpStyle = theme.HelpStyle
)
