package translate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/graph"
)

func TestToEngineSnapshot_ExcludesGroupsAndAnnotations(t *testing.T) {
	t.Parallel()

	nodes := []graph.Node{
		{ID: "n1", Kind: "literal", Data: map[string]any{"value": 2.0}},
		{ID: "g1", Kind: graph.KindGroup},
		{ID: "note", Kind: graph.KindNote, Data: map[string]any{"text": "todo"}},
		{ID: "n2", Kind: "display"},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "n1", Target: "n2"},
		{ID: "e2", Source: "n1", Target: "g1"},
		{ID: "e3", Source: "note", Target: "n2"},
	}

	snapshot := ToEngineSnapshot(nodes, edges, nil)

	require.Len(t, snapshot.Nodes, 2)
	for _, def := range snapshot.Nodes {
		require.NotEqual(t, graph.KindGroup, def.OperationKind)
		require.NotEqual(t, graph.KindNote, def.OperationKind)
	}

	// Edges touching a filtered node are filtered with it.
	require.Len(t, snapshot.Edges, 1)
	require.Equal(t, "e1", snapshot.Edges[0].ID)
}

func TestToEngineSnapshot_AppliesHandleDefaults(t *testing.T) {
	t.Parallel()

	nodes := []graph.Node{
		{ID: "n1", Kind: "literal"},
		{ID: "n2", Kind: "display"},
	}
	edges := []graph.Edge{{ID: "e1", Source: "n1", Target: "n2"}}

	snapshot := ToEngineSnapshot(nodes, edges, nil)
	require.Equal(t, DefaultSourceHandle, snapshot.Edges[0].SourceHandle)
	require.Equal(t, DefaultTargetHandle, snapshot.Edges[0].TargetHandle)
}

func TestNodeDef_RemapsProbeToDisplay(t *testing.T) {
	t.Parallel()

	def := NodeDef(graph.Node{ID: "p1", Kind: KindProbe}, nil)
	require.Equal(t, "display", def.OperationKind)
}

func TestNodeDef_RemapsPickerSelections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		kind      string
		selection string
		want      string
	}{
		{"constant pick", KindConstantPicker, "pi", "const_pi"},
		{"material pick", KindMaterialPicker, "steel", "material_steel"},
		{"custom constant", KindConstantPicker, SelectionCustom, "literal"},
		{"unknown selection", KindMaterialPicker, "unobtanium", "literal"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			node := graph.Node{ID: "s1", Kind: tc.kind, Data: map[string]any{
				DataSelection: tc.selection,
				"value":       1.25,
			}}
			def := NodeDef(node, nil)
			require.Equal(t, tc.want, def.OperationKind)

			// Selection is translator-internal; the carried value survives.
			require.NotContains(t, def.Data, DataSelection)
			require.Equal(t, 1.25, def.Data["value"])
		})
	}
}

func TestNodeDef_ResolvesBindingsOverManualValues(t *testing.T) {
	t.Parallel()

	node := graph.Node{ID: "n1", Kind: "add", Data: map[string]any{
		"lhs": 10.0, // manually entered, overridden by the binding below
		DataBindings: map[string]Binding{
			"lhs": {Source: BindVariable, Name: "x"},
			"rhs": {Source: BindConstant, Name: "g"},
		},
	}}

	opts := &Options{
		Constants: map[string]float64{"g": 9.81},
		Variables: map[string]float64{"x": 4},
	}

	def := NodeDef(node, opts)
	require.Equal(t, 4.0, def.Data["lhs"])
	require.Equal(t, 9.81, def.Data["rhs"])
	require.NotContains(t, def.Data, DataBindings)
}

func TestNodeDef_LiteralBindingUsesInlineValue(t *testing.T) {
	t.Parallel()

	node := graph.Node{ID: "n1", Kind: "scale", Data: map[string]any{
		DataBindings: map[string]Binding{"factor": {Source: BindLiteral, Value: 2.5}},
	}}

	def := NodeDef(node, &Options{})
	require.Equal(t, 2.5, def.Data["factor"])
}

func TestNodeDef_MissingBindingResolvesToNaN(t *testing.T) {
	t.Parallel()

	nodes := []graph.Node{
		{ID: "broken", Kind: "add", Data: map[string]any{
			DataBindings: map[string]Binding{"lhs": {Source: BindVariable, Name: "ghost"}},
		}},
		{ID: "fine", Kind: "literal", Data: map[string]any{"value": 1.0}},
	}

	snapshot := ToEngineSnapshot(nodes, nil, &Options{Variables: map[string]float64{}})

	// The broken reference becomes NaN; translation of the rest succeeds.
	require.Len(t, snapshot.Nodes, 2)
	for _, def := range snapshot.Nodes {
		if def.ID == "broken" {
			require.True(t, math.IsNaN(def.Data["lhs"].(float64)))
		}
		if def.ID == "fine" {
			require.Equal(t, 1.0, def.Data["value"])
		}
	}
}

func TestNodeDef_NilBindingContextSkipsResolution(t *testing.T) {
	t.Parallel()

	node := graph.Node{ID: "n1", Kind: "add", Data: map[string]any{
		"lhs": 10.0,
		DataBindings: map[string]Binding{
			"lhs": {Source: BindVariable, Name: "x"},
		},
	}}

	def := NodeDef(node, nil)
	require.Equal(t, 10.0, def.Data["lhs"])
	require.NotContains(t, def.Data, DataBindings)
}

func TestNodeDef_DecodedBindingShapeResolves(t *testing.T) {
	t.Parallel()

	// Documents loaded from disk carry bindings as generic maps.
	node := graph.Node{ID: "n1", Kind: "literal", Data: map[string]any{
		DataBindings: map[string]any{
			"value": map[string]any{"source": "constant", "name": "yield"},
		},
	}}

	def := NodeDef(node, &Options{Constants: map[string]float64{"yield": 250.0}})
	require.Equal(t, 250.0, def.Data["value"])
}
