// Package viewer is a terminal browser for the name tree of a traversal run.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/idelchi/diskmanager/internal/diskstat"
)

// progressInterval is the refresh cadence of the status line while measuring.
const progressInterval = 250 * time.Millisecond

type (
	namesReadyMsg struct{}
	statsReadyMsg struct{}
	tickMsg       struct{}
	expandedMsg   struct {
		path string
		err  error
	}
)

// row is one visible line of the tree.
type row struct {
	path  string
	depth int
	entry *diskstat.NameEntry
}

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx        context.Context //nolint:containedctx // Expansions run as commands outside of Update
	run        *diskstat.Run
	keys       keyMap
	help       help.Model
	styles     styles
	open       map[string]bool
	rows       []row
	cursor     int
	offset     int
	height     int
	namesReady bool
	statsReady bool
	status     string
}

// New creates a viewer for run.
func New(ctx context.Context, run *diskstat.Run) Model {
	return Model{
		ctx:    ctx,
		run:    run,
		keys:   defaultKeyMap(),
		help:   help.New(),
		styles: defaultStyles(),
		open:   map[string]bool{run.Root(): true},
		status: "reading directory names…",
	}
}

// Run shows the viewer until the user quits or ctx is cancelled.
func Run(ctx context.Context, run *diskstat.Run) error {
	program := tea.NewProgram(New(ctx, run), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("running viewer: %w", err)
	}

	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitFor(m.run.NamesReady(), namesReadyMsg{}),
		waitFor(m.run.StatsReady(), statsReadyMsg{}),
		tick(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
	case namesReadyMsg:
		m.namesReady = true
		m.rebuild()
	case statsReadyMsg:
		m.statsReady = true
		m.status = m.summary()
	case tickMsg:
		if m.statsReady {
			return m, nil
		}

		dirs, bytes := m.run.Progress()
		m.status = fmt.Sprintf("measuring… %d directories, %s", dirs, humanize.IBytes(uint64(max(bytes, 0))))

		return m, tick()
	case expandedMsg:
		switch {
		case msg.err != nil:
			m.status = msg.err.Error()
		case m.statsReady:
			m.open[msg.path] = true
			m.status = m.summary()
		default:
			// The next tick restores the progress line.
			m.open[msg.path] = true
		}

		m.rebuild()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Open):
		return m, m.openSelected()
	case key.Matches(msg, m.keys.Close):
		m.closeSelected()
	}

	return m, nil
}

// openSelected shows the children of the selected row, expanding it first when its
// children were never listed.
func (m *Model) openSelected() tea.Cmd {
	if len(m.rows) == 0 {
		return nil
	}

	selected := m.rows[m.cursor]

	switch selected.entry.State {
	case diskstat.StateExpanded:
		m.open[selected.path] = true
		m.rebuild()

		return nil
	case diskstat.StateLeaf:
		return nil
	default:
		m.status = "expanding " + selected.path + "…"

		return m.expand(selected.path)
	}
}

// closeSelected collapses the selected row or jumps to its parent.
func (m *Model) closeSelected() {
	if len(m.rows) == 0 {
		return
	}

	selected := m.rows[m.cursor]
	if m.open[selected.path] && selected.depth > 0 {
		delete(m.open, selected.path)
		m.rebuild()

		return
	}

	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < selected.depth {
			m.cursor = i
			m.scroll()

			return
		}
	}
}

func (m Model) expand(path string) tea.Cmd {
	run, ctx := m.run, m.ctx

	return func() tea.Msg {
		return expandedMsg{path: path, err: run.Expand(ctx, path, run.NameDepth())}
	}
}

func (m *Model) move(delta int) {
	m.cursor = min(max(m.cursor+delta, 0), max(len(m.rows)-1, 0))
	m.scroll()
}

// scroll keeps the cursor inside the visible window.
func (m *Model) scroll() {
	visible := m.visibleRows()

	switch {
	case m.cursor < m.offset:
		m.offset = m.cursor
	case m.cursor >= m.offset+visible:
		m.offset = m.cursor - visible + 1
	}
}

// rebuild flattens the open part of the name tree into rows.
func (m *Model) rebuild() {
	if !m.namesReady {
		return
	}

	names := m.run.Accumulator().Names()
	selected := ""

	if m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].path
	}

	m.rows = nil

	var walk func(path string, depth int)

	walk = func(path string, depth int) {
		entry, ok := names[path]
		if !ok {
			return
		}

		m.rows = append(m.rows, row{path: path, depth: depth, entry: entry})

		if !m.open[path] {
			return
		}

		for _, child := range entry.SubFolders {
			walk(child, depth+1)
		}
	}

	walk(m.run.Root(), 0)

	m.cursor = 0

	for i, r := range m.rows {
		if r.path == selected {
			m.cursor = i

			break
		}
	}

	m.scroll()
}

func (m Model) summary() string {
	if err := m.run.Err(); err != nil {
		return "unable to scan: " + err.Error()
	}

	stat, ok := m.run.Accumulator().Stat(m.run.Root())
	if !ok {
		return "done"
	}

	status := fmt.Sprintf("done: %s", humanize.IBytes(uint64(stat.Size)))
	if degraded := len(m.run.Accumulator().Failures()); degraded > 0 {
		status += fmt.Sprintf(", %d unreadable directories", degraded)
	}

	return status
}

func waitFor(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch

		return msg
	}
}

func tick() tea.Cmd {
	return tea.Tick(progressInterval, func(time.Time) tea.Msg { return tickMsg{} })
}
