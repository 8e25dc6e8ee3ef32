package viewer

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/idelchi/diskmanager/internal/diskstat"
)

// chromeLines is the number of lines used by the header, status and help.
const chromeLines = 4

type styles struct {
	header lipgloss.Style
	muted  lipgloss.Style
	status lipgloss.Style
	cursor lipgloss.Style
	size   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true),
		cursor: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		size:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func (m Model) visibleRows() int {
	if m.height <= chromeLines {
		return max(len(m.rows), 1)
	}

	return m.height - chromeLines
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.header.Render(m.run.Root()))
	b.WriteString("\n")
	b.WriteString(m.styles.status.Render(m.status))
	b.WriteString("\n")

	end := min(m.offset+m.visibleRows(), len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) renderRow(r row, selected bool) string {
	line := strings.Repeat("  ", r.depth) + m.marker(r) + " " + r.entry.Name

	if selected {
		line = m.styles.cursor.Render(line)
	}

	if stat, ok := m.run.Accumulator().Stat(r.path); ok {
		line += "  " + m.styles.size.Render(humanize.IBytes(uint64(stat.Size)))
	} else if !m.statsReady {
		line += "  " + m.styles.muted.Render("…")
	}

	return line
}

func (m Model) marker(r row) string {
	switch r.entry.State {
	case diskstat.StateLeaf:
		return "·"
	case diskstat.StateUnreadable:
		return "!"
	case diskstat.StateExpanded:
		if m.open[r.path] {
			return "▾"
		}

		return "▸"
	default:
		return "▸"
	}
}
