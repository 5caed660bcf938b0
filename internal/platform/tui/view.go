package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	rosterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// View renders the header, the scrollback viewport, and the input line.
func (m *ClientModel) View() string {
	if !m.ready {
		return "connecting...\n"
	}

	header := headerStyle.Render(fmt.Sprintf("wirechat %s", m.cfg.Addr)) +
		" " + rosterStyle.Render(m.rosterLine())

	footer := promptStyle.Render("> ") + m.input.View()
	if m.err != nil {
		footer = errorStyle.Render(fmt.Sprintf("disconnected: %v (press esc to exit)", m.err))
	}

	return header + "\n" + m.viewport.View() + "\n" + footer
}

// rosterLine summarizes who is in the room, ids ascending.
func (m *ClientModel) rosterLine() string {
	if len(m.roster) == 0 {
		return "(alone)"
	}
	ids := make([]int, 0, len(m.roster))
	for id := range m.roster {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, m.roster[byte(id)])
	}
	return strings.Join(names, ", ")
}
