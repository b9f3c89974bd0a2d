// Package tui holds the interactive pieces of the CLI.
package tui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// ConfirmModel asks a yes/no question. No is selected initially.
type ConfirmModel struct {
	question string
	details  []string
	yes      bool
	answered bool
	width    int
}

func NewConfirmModel(question string, details []string) ConfirmModel {
	return ConfirmModel{question: question, details: details, width: 80}
}

// Confirmed reports whether the user chose yes.
func (m ConfirmModel) Confirmed() bool {
	return m.answered && m.yes
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyPressMsg:
		switch msg.String() {
		case "y", "Y":
			m.yes, m.answered = true, true
			return m, tea.Quit
		case "n", "N", "q", "esc", "ctrl+c":
			m.yes, m.answered = false, true
			return m, tea.Quit
		case "left", "right", "tab", "h", "l":
			m.yes = !m.yes
		case "enter":
			m.answered = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ConfirmModel) View() tea.View {
	var b strings.Builder
	b.WriteString(questionStyle.Render(m.question))
	for _, d := range m.details {
		b.WriteString("\n" + detailStyle.Render("  "+d))
	}

	yes, no := choiceStyle.Render("Yes"), selectedStyle.Render("No")
	if m.yes {
		yes, no = selectedStyle.Render("Yes"), choiceStyle.Render("No")
	}
	b.WriteString("\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, yes, " ", no))
	b.WriteString("\n" + helpStyle.Render("y yes • n no • ←/→ select • enter confirm"))

	box := promptStyle.MaxWidth(max(m.width-2, 20)).Render(b.String())
	return tea.NewView(box + "\n")
}
