// Package tui renders a live view of a synchronized graph session: current
// node values, diagnostics, and the engine's sync status.
package tui

import (
	"sort"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/scheduler"
)

// UpdateMsg carries one accepted session update into the TUI.
type UpdateMsg struct {
	Update scheduler.Update
}

// EngineReadyMsg announces the engine after its handshake.
type EngineReadyMsg struct {
	Info scheduler.EngineInfo
}

// Model contains the Bubbletea state for the watch view.
type Model struct {
	name   string
	engine *scheduler.EngineInfo

	values      map[string]protocol.Value
	order       []string
	diagnostics []protocol.Diagnostic
	partial     bool
	err         error

	updates  int
	spinner  spinner.Model
	finished bool
}

// NewModel constructs a watch model for the named document.
func NewModel(name string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		name:    name,
		values:  make(map[string]protocol.Value),
		spinner: sp,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Finished reports whether the user asked to quit.
func (m Model) Finished() bool {
	return m.finished
}

// ValueCount returns the number of nodes with a current value.
func (m Model) ValueCount() int {
	return len(m.values)
}

func (m *Model) applyUpdate(update scheduler.Update) {
	m.updates++
	m.values = update.Values
	m.diagnostics = update.Diagnostics
	m.partial = update.Partial
	m.err = update.Err

	m.order = m.order[:0]
	for id := range m.values {
		m.order = append(m.order, id)
	}
	sort.Strings(m.order)
}
