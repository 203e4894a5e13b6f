package group

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridflow/internal/graph"
)

func templatePayload() TemplatePayload {
	return TemplatePayload{
		Nodes: []graph.Node{
			{ID: "t1", Kind: "literal", Position: graph.Position{X: 0, Y: 0}, Width: 100, Height: 50},
			{ID: "t2", Kind: "add", Position: graph.Position{X: 200, Y: 100}, Width: 100, Height: 50},
		},
		Edges: []graph.Edge{
			{ID: "te1", Source: "t1", SourceHandle: "out", Target: "t2", TargetHandle: "lhs"},
			{ID: "te2", Source: "t1", Target: "elsewhere"},
		},
	}
}

func TestInsertTemplate_MintsFreshIDsAndRemapsEdges(t *testing.T) {
	t.Parallel()

	ids := graph.UUIDSource{}
	groupNode, members, edges := InsertTemplate(templatePayload(), graph.Position{X: 50, Y: 60}, "filter", "#aabbcc", ids)

	require.Equal(t, graph.KindGroup, groupNode.Kind)
	require.Equal(t, "filter", groupNode.Data[DataLabel])
	require.Equal(t, "#aabbcc", groupNode.Data[DataColor])
	require.Equal(t, graph.Position{X: 50, Y: 60}, groupNode.Position)

	require.Len(t, members, 2)
	for _, member := range members {
		require.Equal(t, groupNode.ID, member.ParentID)
		require.NotContains(t, []string{"t1", "t2"}, member.ID)
	}

	// Edge pointing outside the payload is dropped; the internal edge is
	// remapped onto the fresh ids.
	require.Len(t, edges, 1)
	require.Equal(t, members[0].ID, edges[0].Source)
	require.Equal(t, members[1].ID, edges[0].Target)
	require.Equal(t, "lhs", edges[0].TargetHandle)
}

func TestInsertTemplate_NormalizesMemberGeometry(t *testing.T) {
	t.Parallel()

	payload := templatePayload()
	for i := range payload.Nodes {
		payload.Nodes[i].Position.X += 1000
		payload.Nodes[i].Position.Y += 500
	}

	groupNode, members, _ := InsertTemplate(payload, graph.Position{}, "g", "", &graph.SequenceSource{})
	require.Equal(t, Padding, members[0].Position.X)
	require.Equal(t, Padding+HeaderHeight, members[0].Position.Y)
	require.Equal(t, 300+2*Padding, groupNode.Width)
	require.Equal(t, 150+2*Padding+HeaderHeight, groupNode.Height)
}

func TestInsertTemplate_RepeatedInsertsNeverCollide(t *testing.T) {
	t.Parallel()

	ids := graph.UUIDSource{}
	seen := make(map[string]struct{})

	for i := 0; i < 3; i++ {
		groupNode, members, edges := InsertTemplate(templatePayload(), graph.Position{}, "g", "", ids)
		for _, id := range append([]string{groupNode.ID}, collectIDs(members, edges)...) {
			_, dup := seen[id]
			require.False(t, dup, "id %s minted twice", id)
			seen[id] = struct{}{}
		}
	}
}

func collectIDs(nodes []graph.Node, edges []graph.Edge) []string {
	var out []string
	for _, node := range nodes {
		out = append(out, node.ID)
	}
	for _, edge := range edges {
		out = append(out, edge.ID)
	}
	return out
}
