// Package group implements the super-node abstraction over the canvas graph:
// grouping, collapse with proxy rerouting, lossless expand, and canonical-form
// extraction. Every function is a pure transformation over its inputs; callers
// own the slices they pass in and receive fresh copies back.
package group

import (
	"fmt"

	"github.com/gridflow/gridflow/internal/graph"
	gferrors "github.com/gridflow/gridflow/pkg/errors"
)

// Geometry constants for derived group bounds.
const (
	Padding      = 24.0
	HeaderHeight = 36.0
)

// Data keys recorded on a group node.
const (
	DataLabel        = "label"
	DataColor        = "color"
	DataCollapsed    = "collapsed"
	DataProxyHandles = "proxyHandles"
)

// CreateGroup forms a new group from the selected nodes. It requires at least
// two selected non-group nodes, computes the minimal bounding box over the
// selection, sets each member's parent, and rewrites member positions relative
// to the new group origin. Edges are not touched.
func CreateGroup(selectedIDs []string, allNodes []graph.Node, geo graph.Geometry, ids graph.IDSource) (graph.Node, []graph.Node, error) {
	if len(selectedIDs) < 2 {
		return graph.Node{}, nil, gferrors.NewValidationError("selection", "at least two nodes are required to form a group", nil)
	}
	if geo == nil {
		geo = graph.DefaultGeometry{}
	}

	byID := graph.NodesByID(allNodes)
	selected := make([]graph.Node, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		node, ok := byID[id]
		if !ok {
			return graph.Node{}, nil, gferrors.NewValidationError("selection", fmt.Sprintf("unknown node %q", id), nil)
		}
		if node.Kind == graph.KindGroup {
			return graph.Node{}, nil, gferrors.NewValidationError("selection", fmt.Sprintf("node %q is a group and cannot be grouped", id), nil)
		}
		selected = append(selected, node)
	}

	minX, minY, maxX, maxY := bounds(selected, geo)
	origin := graph.Position{X: minX - Padding, Y: minY - Padding - HeaderHeight}

	groupNode := graph.Node{
		ID:       ids.NewID("group"),
		Kind:     graph.KindGroup,
		Data:     map[string]any{DataCollapsed: false},
		Position: origin,
		Width:    maxX - minX + 2*Padding,
		Height:   maxY - minY + 2*Padding + HeaderHeight,
	}

	memberSet := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		memberSet[id] = struct{}{}
	}

	updated := graph.CloneNodes(allNodes)
	for i := range updated {
		if _, ok := memberSet[updated[i].ID]; !ok {
			continue
		}
		updated[i].ParentID = groupNode.ID
		updated[i].Position.X -= origin.X
		updated[i].Position.Y -= origin.Y
	}
	updated = append(updated, groupNode)

	return groupNode, updated, nil
}

// UngroupNodes dissolves a group: member positions return to absolute
// coordinates, parents are cleared, and the group node is removed. A missing
// group id is a benign no-op since the UI may race a deletion against a
// pending action.
func UngroupNodes(groupID string, allNodes []graph.Node) []graph.Node {
	groupNode, ok := findGroup(groupID, allNodes)
	if !ok {
		return allNodes
	}

	updated := make([]graph.Node, 0, len(allNodes)-1)
	for _, node := range graph.CloneNodes(allNodes) {
		if node.ID == groupID {
			continue
		}
		if node.ParentID == groupID {
			node.ParentID = ""
			node.Position.X += groupNode.Position.X
			node.Position.Y += groupNode.Position.Y
		}
		updated = append(updated, node)
	}
	return updated
}

// DeleteGroup removes a group together with all of its current members and
// every edge touching a member. A missing group id is a no-op.
func DeleteGroup(groupID string, nodes []graph.Node, edges []graph.Edge) ([]graph.Node, []graph.Edge) {
	if _, ok := findGroup(groupID, nodes); !ok {
		return nodes, edges
	}

	doomed := map[string]struct{}{groupID: {}}
	for _, node := range nodes {
		if node.ParentID == groupID {
			doomed[node.ID] = struct{}{}
		}
	}

	keptNodes := make([]graph.Node, 0, len(nodes))
	for _, node := range nodes {
		if _, dead := doomed[node.ID]; !dead {
			keptNodes = append(keptNodes, node)
		}
	}

	keptEdges := make([]graph.Edge, 0, len(edges))
	for _, edge := range edges {
		_, srcDead := doomed[edge.Source]
		_, dstDead := doomed[edge.Target]
		if !srcDead && !dstDead {
			keptEdges = append(keptEdges, edge)
		}
	}
	return keptNodes, keptEdges
}

// RefreshBounds recomputes a group's derived geometry from its current member
// positions and sizes. Group geometry is never hand-edited; this is the only
// way it changes. A missing or empty group is a no-op.
func RefreshBounds(groupID string, nodes []graph.Node, geo graph.Geometry) []graph.Node {
	if geo == nil {
		geo = graph.DefaultGeometry{}
	}
	if _, ok := findGroup(groupID, nodes); !ok {
		return nodes
	}

	members := Members(groupID, nodes)
	if len(members) == 0 {
		return nodes
	}

	minX, minY, maxX, maxY := bounds(members, geo)
	shiftX := minX - Padding
	shiftY := minY - Padding - HeaderHeight

	updated := graph.CloneNodes(nodes)
	for i := range updated {
		switch {
		case updated[i].ID == groupID:
			updated[i].Position.X += shiftX
			updated[i].Position.Y += shiftY
			updated[i].Width = maxX - minX + 2*Padding
			updated[i].Height = maxY - minY + 2*Padding + HeaderHeight
		case updated[i].ParentID == groupID:
			updated[i].Position.X -= shiftX
			updated[i].Position.Y -= shiftY
		}
	}
	return updated
}

// Members returns the nodes whose parent is the given group.
func Members(groupID string, nodes []graph.Node) []graph.Node {
	var members []graph.Node
	for _, node := range nodes {
		if node.ParentID == groupID {
			members = append(members, node)
		}
	}
	return members
}

// IsCollapsed reads the collapse marker off a group node's data.
func IsCollapsed(node graph.Node) bool {
	collapsed, _ := node.Data[DataCollapsed].(bool)
	return collapsed
}

func findGroup(groupID string, nodes []graph.Node) (graph.Node, bool) {
	for _, node := range nodes {
		if node.ID == groupID && node.Kind == graph.KindGroup {
			return node, true
		}
	}
	return graph.Node{}, false
}

func bounds(nodes []graph.Node, geo graph.Geometry) (minX, minY, maxX, maxY float64) {
	for i, node := range nodes {
		width, height := geo.Size(node)
		if i == 0 {
			minX, minY = node.Position.X, node.Position.Y
			maxX, maxY = node.Position.X+width, node.Position.Y+height
			continue
		}
		minX = min(minX, node.Position.X)
		minY = min(minY, node.Position.Y)
		maxX = max(maxX, node.Position.X+width)
		maxY = max(maxY, node.Position.Y+height)
	}
	return minX, minY, maxX, maxY
}
