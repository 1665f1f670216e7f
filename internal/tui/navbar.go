package tui

import (
	"github.com/charmbracelet/lipgloss"
)

type ViewType int

const (
	ViewTimer ViewType = iota
	ViewTabs
)

var viewNames = []string{"Timer", "Tabs"}

func renderNavbar(active ViewType, connected bool, width int) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	linkStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var tabs string
	for i, name := range viewNames {
		if i > 0 {
			tabs += inactiveStyle.Render(" │ ")
		}
		if ViewType(i) == active {
			tabs += activeStyle.Render(name)
		} else {
			tabs += inactiveStyle.Render(name)
		}
	}
	left := " " + tabs

	link := "● connected"
	if !connected {
		link = "○ disconnected"
	}
	right := linkStyle.Render(link)

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return left + lipgloss.NewStyle().Width(gap).Render("") + right + " "
}
