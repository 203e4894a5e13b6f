package group

import (
	"github.com/gridflow/gridflow/internal/graph"
)

// TemplatePayload is a reusable subgraph stamped into a live graph. Node
// positions are interpreted relative to the payload's own coordinate space.
type TemplatePayload struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

// InsertTemplate places a template into the graph as a fresh group at the
// given canvas position. Every node and edge receives a newly minted id so
// repeated inserts of the same payload never collide, edges are remapped to
// the fresh ids, and member geometry is normalized to the new group's origin.
// Edges referencing nodes outside the payload are dropped.
func InsertTemplate(payload TemplatePayload, position graph.Position, name, color string, ids graph.IDSource) (graph.Node, []graph.Node, []graph.Edge) {
	groupNode := graph.Node{
		ID:   ids.NewID("group"),
		Kind: graph.KindGroup,
		Data: map[string]any{
			DataLabel:     name,
			DataColor:     color,
			DataCollapsed: false,
		},
		Position: position,
	}

	idMap := make(map[string]string, len(payload.Nodes))
	members := graph.CloneNodes(payload.Nodes)
	for i := range members {
		fresh := ids.NewID("node")
		idMap[members[i].ID] = fresh
		members[i].ID = fresh
		members[i].ParentID = groupNode.ID
	}

	if len(members) > 0 {
		geo := graph.DefaultGeometry{}
		minX, minY, maxX, maxY := bounds(members, geo)
		for i := range members {
			members[i].Position.X += Padding - minX
			members[i].Position.Y += Padding + HeaderHeight - minY
		}
		groupNode.Width = maxX - minX + 2*Padding
		groupNode.Height = maxY - minY + 2*Padding + HeaderHeight
	}

	var memberEdges []graph.Edge
	for _, edge := range payload.Edges {
		source, okSource := idMap[edge.Source]
		target, okTarget := idMap[edge.Target]
		if !okSource || !okTarget {
			continue
		}
		fresh := edge
		fresh.ID = ids.NewID("edge")
		fresh.Source = source
		fresh.Target = target
		memberEdges = append(memberEdges, fresh)
	}

	return groupNode, members, memberEdges
}
