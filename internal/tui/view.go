package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgruppen/internal/timer"
	"github.com/lotas/tabgruppen/internal/types"
)

var phaseLabels = map[types.Phase]string{
	types.PhaseWork:      "Working",
	types.PhaseBreak:     "Short Break",
	types.PhaseLongBreak: "Long Break",
	types.PhaseIdle:      "Ready to Start",
}

// phaseLabel is the headline for st.
func phaseLabel(st types.TimerState) string {
	if st.IsPaused {
		return "Paused"
	}
	return phaseLabels[st.Phase]
}

// clock formats seconds as M:SS.
func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func (m Model) View() string {
	var body string
	switch m.view {
	case ViewTabs:
		body = m.viewTabs()
	default:
		body = m.viewTimer()
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)
	if m.width > 4 {
		box = box.Width(m.width - 2)
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	if m.statusErr {
		statusStyle = statusStyle.Foreground(lipgloss.Color("196"))
	}
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1).Render(
		"s start/pause · r reset · e enable · +/- work · o organize · u ungroup · z undo · x suspend · tab view · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		renderNavbar(m.view, m.connected, m.width),
		box.Render(body),
		statusStyle.Render(m.status),
		help,
	)
}

func (m Model) viewTimer() string {
	if !m.hasState {
		return "Waiting for timer state..."
	}
	st := m.state
	_, color := timer.BadgeFor(st.Phase, st.RemainingSeconds)

	timeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	if st.Phase == types.PhaseIdle {
		timeStyle = timeStyle.Foreground(lipgloss.Color("245"))
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	lines := []string{
		timeStyle.Render(clock(st.RemainingSeconds)),
		phaseLabel(st),
		dim.Render(fmt.Sprintf("Pomodoro #%d", st.CompletedWorkSessions+1)),
		"",
		dim.Render(fmt.Sprintf("Work %dm · Break %dm · Long break %dm",
			st.Settings.WorkMinutes, st.Settings.BreakMinutes, st.Settings.LongBreakMinutes)),
	}
	if !st.Settings.Enabled {
		lines = append(lines, dim.Render("Timer disabled (press e to enable)"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewTabs() string {
	var b strings.Builder
	if m.stats == nil {
		b.WriteString("Loading statistics...\n")
	} else {
		s := m.stats
		fmt.Fprintf(&b, "%d tabs · %d groups · %d ungrouped\n", s.TotalTabs, s.GroupCount, s.UngroupedTabs)
		fmt.Fprintf(&b, "%d pinned · %d duplicates · %d inactive groups\n", s.PinnedTabs, s.DuplicateTabs, s.InactiveGroups)
	}

	b.WriteString("\nSuggested groupings\n")
	if len(m.suggest) == 0 {
		b.WriteString("  none yet\n")
	}
	for _, s := range m.suggest {
		fmt.Fprintf(&b, "  %s (%.1f)\n", strings.Join(s.Domains, ", "), s.Confidence)
	}
	return strings.TrimRight(b.String(), "\n")
}
