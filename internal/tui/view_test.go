package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/scheduler"
)

func TestView_ShowsValuesAndDiagnostics(t *testing.T) {
	t.Parallel()

	m := NewModel("beam-check")
	m.applyUpdate(scheduler.Update{
		Values: map[string]protocol.Value{
			"stress": protocol.Scalar(125.5),
			"broken": protocol.ErrorValue("division by zero"),
		},
		Diagnostics: []protocol.Diagnostic{
			{NodeID: "broken", Level: protocol.LevelError, Code: "DIV_ZERO", Message: "division by zero"},
		},
	})

	out := m.View()
	require.Contains(t, out, "beam-check")
	require.Contains(t, out, "stress")
	require.Contains(t, out, "125.5")
	require.Contains(t, out, "DIV_ZERO")
}

func TestView_VectorPreviewTruncates(t *testing.T) {
	t.Parallel()

	preview := vectorPreview([]float64{1, 2, 3, 4, 5, 6})
	require.Contains(t, preview, "+2")
	require.Contains(t, preview, "n=6")
}

func TestView_WaitingBeforeHandshake(t *testing.T) {
	t.Parallel()

	m := NewModel("x")
	require.Contains(t, m.View(), "waiting for engine")
}
