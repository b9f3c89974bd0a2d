package theme

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

// Colors
var (
	Primary   = lipgloss.Color("#33A8FF")
	Secondary = lipgloss.Color("#163047")
	Muted     = lipgloss.Color("#6B7280")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")
)

// Shared styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SectionStyle = lipgloss.NewStyle().
			Foreground(Primary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	PromptBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Warning).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(1, 0, 0, 0)
)

// StatusColor maps AWS resource, EKS update and check statuses to theme colors.
func StatusColor(status string) color.Color {
	switch strings.ToLower(status) {
	case "running", "active", "available", "healthy", "successful", "succeeded",
		"synced", "pass", "passed", "completed", "ready":
		return Success
	case "stopped", "terminated", "failed", "unhealthy", "error", "degraded",
		"delete_failed", "create_failed", "update_failed", "cancelled", "fail", "missing":
		return Error
	case "pending", "creating", "updating", "deleting", "inprogress", "in-progress",
		"provisioning", "active_impaired", "outofsync", "progressing", "warn", "planned":
		return Warning
	default:
		return Muted
	}
}

// RenderStatus renders a status string with a colored bullet.
func RenderStatus(status string) string {
	c := StatusColor(status)
	bullet := lipgloss.NewStyle().Foreground(c).Render("●")
	return bullet + " " + status
}

// Mark returns a colored one-character marker for a check status.
func Mark(status string) string {
	var m string
	switch StatusColor(status) {
	case Success:
		m = "✓"
	case Warning:
		m = "!"
	case Error:
		m = "✗"
	default:
		m = "-"
	}
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Bold(true).Render(m)
}

// Verdict renders PASSED or FAILED in the matching color.
func Verdict(status string) string {
	if strings.EqualFold(status, "passed") {
		return SuccessStyle.Render(status)
	}
	return ErrorStyle.Render(status)
}
