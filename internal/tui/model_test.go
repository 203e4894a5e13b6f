package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/scheduler"
)

func TestUpdate_AppliesSessionUpdate(t *testing.T) {
	t.Parallel()

	m := NewModel("beam-check")
	next, _ := m.Update(UpdateMsg{Update: scheduler.Update{
		Values: map[string]protocol.Value{
			"a": protocol.Scalar(1),
			"b": protocol.Vector([]float64{1, 2, 3}),
		},
		Partial: true,
	}})

	model := next.(Model)
	require.Equal(t, 2, model.ValueCount())
	require.True(t, model.partial)
	require.Equal(t, []string{"a", "b"}, model.order)
}

func TestUpdate_QuitKeysFinish(t *testing.T) {
	t.Parallel()

	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	}
	for _, key := range keys {
		m := NewModel("x")
		next, cmd := m.Update(key)
		require.True(t, next.(Model).Finished())
		require.NotNil(t, cmd)
	}
}

func TestUpdate_EngineReadyStored(t *testing.T) {
	t.Parallel()

	m := NewModel("x")
	next, _ := m.Update(EngineReadyMsg{Info: scheduler.EngineInfo{EngineVersion: "gridflow-engine 1.4.0"}})
	require.NotNil(t, next.(Model).engine)
}
