package group

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/graph"
)

// grid builds a five-node graph where "b" and "m" will be grouped:
// a -> b -> m -> c, plus d feeding m directly.
func grid(t *testing.T) (string, []graph.Node, []graph.Edge) {
	t.Helper()

	nodes := []graph.Node{
		{ID: "a", Kind: "literal", Position: graph.Position{X: 0, Y: 0}, Width: 100, Height: 50},
		{ID: "b", Kind: "add", Position: graph.Position{X: 200, Y: 0}, Width: 100, Height: 50},
		{ID: "m", Kind: "mul", Position: graph.Position{X: 400, Y: 0}, Width: 100, Height: 50},
		{ID: "c", Kind: "display", Position: graph.Position{X: 600, Y: 0}, Width: 100, Height: 50},
		{ID: "d", Kind: "literal", Position: graph.Position{X: 200, Y: 200}, Width: 100, Height: 50},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "a", SourceHandle: "out", Target: "b", TargetHandle: "lhs"},
		{ID: "e2", Source: "b", SourceHandle: "out", Target: "m", TargetHandle: "lhs"},
		{ID: "e3", Source: "m", SourceHandle: "out", Target: "c", TargetHandle: "in"},
		{ID: "e4", Source: "d", SourceHandle: "out", Target: "m", TargetHandle: "rhs"},
	}

	groupNode, grouped, err := CreateGroup([]string{"b", "m"}, nodes, nil, &graph.SequenceSource{})
	require.NoError(t, err)
	return groupNode.ID, grouped, edges
}

func edgesByID(edges []graph.Edge) map[string]graph.Edge {
	out := make(map[string]graph.Edge, len(edges))
	for _, edge := range edges {
		out[edge.ID] = edge
	}
	return out
}

func TestCollapseGroup_ReroutesBoundaryEdges(t *testing.T) {
	t.Parallel()

	groupID, nodes, edges := grid(t)
	collapsedNodes, collapsedEdges := CollapseGroup(groupID, nodes, edges)

	byID := edgesByID(collapsedEdges)

	// Inbound crossing: a -> b becomes a -> group on an "in" proxy.
	e1 := byID["e1"]
	require.Equal(t, groupID, e1.Target)
	require.Equal(t, "in-1", e1.TargetHandle)
	require.NotNil(t, e1.Reroute)
	require.Equal(t, graph.Endpoint{Node: "b", Handle: "lhs"}, *e1.Reroute.OriginalTarget)

	// Internal edge is hidden, never removed or rerouted.
	e2 := byID["e2"]
	require.True(t, e2.Hidden)
	require.Nil(t, e2.Reroute)
	require.Equal(t, "b", e2.Source)
	require.Equal(t, "m", e2.Target)

	// Outbound crossing: m -> c becomes group -> c on an "out" proxy.
	e3 := byID["e3"]
	require.Equal(t, groupID, e3.Source)
	require.Equal(t, "out-1", e3.SourceHandle)
	require.Equal(t, graph.Endpoint{Node: "m", Handle: "out"}, *e3.Reroute.OriginalSource)

	// Second inbound crossing mints a distinct proxy in the same direction.
	e4 := byID["e4"]
	require.Equal(t, groupID, e4.Target)
	require.Equal(t, "in-2", e4.TargetHandle)

	nodeByID := graph.NodesByID(collapsedNodes)
	require.True(t, nodeByID["b"].Hidden)
	require.True(t, nodeByID["m"].Hidden)
	require.False(t, nodeByID["a"].Hidden)
	require.True(t, IsCollapsed(nodeByID[groupID]))

	handles, ok := nodeByID[groupID].Data[DataProxyHandles].([]ProxyHandle)
	require.True(t, ok)
	require.Len(t, handles, 3)
}

func TestCollapseGroup_SharedInternalPortSharesProxy(t *testing.T) {
	t.Parallel()

	groupID, nodes, edges := grid(t)
	// Two external feeders into the same internal port would violate the
	// single-writer invariant, so fan out from one internal source instead.
	edges = append(edges, graph.Edge{ID: "e5", Source: "m", SourceHandle: "out", Target: "d", TargetHandle: "in"})

	_, collapsedEdges := CollapseGroup(groupID, nodes, edges)
	byID := edgesByID(collapsedEdges)
	require.Equal(t, byID["e3"].SourceHandle, byID["e5"].SourceHandle)
}

func TestCollapseGroup_MissingOrEmptyGroupIsNoOp(t *testing.T) {
	t.Parallel()

	_, nodes, edges := grid(t)

	outNodes, outEdges := CollapseGroup("gone", nodes, edges)
	require.Equal(t, nodes, outNodes)
	require.Equal(t, edges, outEdges)

	empty := append(graph.CloneNodes(nodes), graph.Node{ID: "g-empty", Kind: graph.KindGroup})
	outNodes, outEdges = CollapseGroup("g-empty", empty, edges)
	require.Equal(t, empty, outNodes)
	require.Equal(t, edges, outEdges)
}

func TestCollapseGroup_NoBoundaryEdgesStillHidesMembers(t *testing.T) {
	t.Parallel()

	groupID, nodes, _ := grid(t)
	internal := []graph.Edge{{ID: "e2", Source: "b", SourceHandle: "out", Target: "m", TargetHandle: "lhs"}}

	collapsedNodes, collapsedEdges := CollapseGroup(groupID, nodes, internal)
	require.True(t, collapsedEdges[0].Hidden)

	nodeByID := graph.NodesByID(collapsedNodes)
	require.True(t, nodeByID["b"].Hidden)
	require.True(t, nodeByID["m"].Hidden)
}

func TestExpandGroup_IsLosslessInverse(t *testing.T) {
	t.Parallel()

	groupID, nodes, edges := grid(t)
	collapsedNodes, collapsedEdges := CollapseGroup(groupID, nodes, edges)
	expandedNodes, expandedEdges := ExpandGroup(groupID, collapsedNodes, collapsedEdges)

	byID := edgesByID(expandedEdges)
	for _, original := range edges {
		restored := byID[original.ID]
		require.Equal(t, original.Source, restored.Source, "edge %s source", original.ID)
		require.Equal(t, original.SourceHandle, restored.SourceHandle, "edge %s source handle", original.ID)
		require.Equal(t, original.Target, restored.Target, "edge %s target", original.ID)
		require.Equal(t, original.TargetHandle, restored.TargetHandle, "edge %s target handle", original.ID)
		require.Nil(t, restored.Reroute)
		require.False(t, restored.Hidden)
	}

	nodeByID := graph.NodesByID(expandedNodes)
	for _, node := range nodes {
		require.Equal(t, node.Hidden, nodeByID[node.ID].Hidden)
	}
	require.False(t, IsCollapsed(nodeByID[groupID]))
	require.NotContains(t, nodeByID[groupID].Data, DataProxyHandles)
}

func TestExpandGroup_MissingGroupIsNoOp(t *testing.T) {
	t.Parallel()

	_, nodes, edges := grid(t)
	outNodes, outEdges := ExpandGroup("gone", nodes, edges)
	require.Equal(t, nodes, outNodes)
	require.Equal(t, edges, outEdges)
}

func TestCanonicalSnapshot_RemovesProxiesButKeepsCollapseMarker(t *testing.T) {
	t.Parallel()

	groupID, nodes, edges := grid(t)
	collapsedNodes, collapsedEdges := CollapseGroup(groupID, nodes, edges)

	canonNodes, canonEdges := CanonicalSnapshot(collapsedNodes, collapsedEdges)

	for _, edge := range canonEdges {
		require.Nil(t, edge.Reroute)
		require.False(t, edge.Hidden)
	}

	nodeByID := graph.NodesByID(canonNodes)
	require.False(t, nodeByID["b"].Hidden)
	require.False(t, nodeByID["m"].Hidden)

	// The collapse survives in data only, so a reload can re-collapse.
	require.True(t, IsCollapsed(nodeByID[groupID]))
}

func TestCanonicalSnapshot_ExpandedGraphPassesThrough(t *testing.T) {
	t.Parallel()

	_, nodes, edges := grid(t)
	canonNodes, canonEdges := CanonicalSnapshot(nodes, edges)
	require.Equal(t, nodes, canonNodes)
	require.Equal(t, edges, canonEdges)
}
