package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const evalDocument = `
version: "1.0.0"
name: sum-check
variables:
  - name: x
    values:
      low: 2.0
      high: 10.0
    active: low
nodes:
  - id: a
    kind: literal
    data:
      bindings:
        value:
          source: variable
          name: x
  - id: b
    kind: literal
    data:
      value: 3
  - id: total
    kind: add
edges:
  - id: e1
    source: a
    target: total
    target_handle: lhs
  - id: e2
    source: b
    target: total
    target_handle: rhs
`

func writeGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(evalDocument), 0o644))
	return path
}

func runEvalCommand(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return buf.String()
}

func TestEvalCommandPrintsValues(t *testing.T) {
	output := runEvalCommand(t, "eval", writeGraph(t))
	require.Contains(t, output, "sum-check")
	require.Contains(t, output, "total")
	require.Contains(t, output, "5")
}

func TestEvalCommandVariableOverride(t *testing.T) {
	output := runEvalCommand(t, "eval", writeGraph(t), "--var", "x=high", "--json")

	var payload struct {
		Values map[string]struct {
			Kind   string  `json:"kind"`
			Scalar float64 `json:"scalar"`
		} `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &payload))
	require.Equal(t, 13.0, payload.Values["total"].Scalar)
}

func TestEvalCommandAnnotationOnlyDocument(t *testing.T) {
	document := `
version: "1.0.0"
name: notes-only
nodes:
  - id: n1
    kind: note
    data:
      text: nothing to compute here
`
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	// Zero evaluable nodes still yields a prompt, empty result.
	output := runEvalCommand(t, "eval", path, "--timeout", "5s")
	require.Contains(t, output, "notes-only")
	require.NotContains(t, output, "timed out")
}

func TestEvalCommandRejectsBadOverride(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"eval", writeGraph(t), "--var", "x"})
	require.Error(t, root.Execute())
}

func TestEvalCommandMissingDocument(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"eval", filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, root.Execute())
}
