package group

import (
	"fmt"

	"github.com/gridflow/gridflow/internal/graph"
)

// Proxy handle directions. Handle identifiers are unique within one collapse
// operation and scoped to their direction.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Collapsed group geometry is derived from the proxy handle count.
const (
	collapsedWidth     = 220.0
	collapsedRowHeight = 28.0
)

// ProxyHandle is a synthetic connection point on a collapsed group node
// standing in for one or more real edges crossing the group boundary.
type ProxyHandle struct {
	ID        string
	Direction string
}

// CollapseGroup hides a group's members and reroutes boundary-crossing edges
// onto freshly minted proxy handles. Edges fully inside the group are hidden,
// not removed. An edge whose endpoints are both members is internal even when
// both endpoints would leave the group in the same pass; only edges touching
// exactly one member gain a proxy. Missing groups and empty groups are no-ops.
func CollapseGroup(groupID string, nodes []graph.Node, edges []graph.Edge) ([]graph.Node, []graph.Edge) {
	if _, ok := findGroup(groupID, nodes); !ok {
		return nodes, edges
	}

	memberSet := make(map[string]struct{})
	for _, node := range nodes {
		if node.ParentID == groupID {
			memberSet[node.ID] = struct{}{}
		}
	}
	if len(memberSet) == 0 {
		return nodes, edges
	}

	updatedEdges := graph.CloneEdges(edges)

	// One proxy per unique internal endpoint and direction, so several edges
	// from the same internal port share a handle.
	proxyByEndpoint := make(map[string]string)
	var handles []ProxyHandle
	inCount, outCount := 0, 0

	mintProxy := func(direction string, original graph.Endpoint) string {
		key := fmt.Sprintf("%s/%s/%s", direction, original.Node, original.Handle)
		if id, ok := proxyByEndpoint[key]; ok {
			return id
		}
		var id string
		if direction == DirectionIn {
			inCount++
			id = fmt.Sprintf("%s-%d", DirectionIn, inCount)
		} else {
			outCount++
			id = fmt.Sprintf("%s-%d", DirectionOut, outCount)
		}
		proxyByEndpoint[key] = id
		handles = append(handles, ProxyHandle{ID: id, Direction: direction})
		return id
	}

	for i := range updatedEdges {
		edge := &updatedEdges[i]
		_, srcMember := memberSet[edge.Source]
		_, dstMember := memberSet[edge.Target]

		switch {
		case srcMember && dstMember:
			edge.Hidden = true
		case dstMember:
			original := graph.Endpoint{Node: edge.Target, Handle: edge.TargetHandle}
			if edge.Reroute == nil {
				edge.Reroute = &graph.Reroute{}
			}
			edge.Reroute.OriginalTarget = &original
			edge.Target = groupID
			edge.TargetHandle = mintProxy(DirectionIn, original)
		case srcMember:
			original := graph.Endpoint{Node: edge.Source, Handle: edge.SourceHandle}
			if edge.Reroute == nil {
				edge.Reroute = &graph.Reroute{}
			}
			edge.Reroute.OriginalSource = &original
			edge.Source = groupID
			edge.SourceHandle = mintProxy(DirectionOut, original)
		}
	}

	rows := max(inCount, outCount)
	if rows == 0 {
		rows = 1
	}

	updatedNodes := graph.CloneNodes(nodes)
	for i := range updatedNodes {
		node := &updatedNodes[i]
		switch {
		case node.ID == groupID:
			if node.Data == nil {
				node.Data = make(map[string]any)
			}
			node.Data[DataCollapsed] = true
			node.Data[DataProxyHandles] = handles
			node.Width = collapsedWidth
			node.Height = HeaderHeight + float64(rows)*collapsedRowHeight
		case node.ParentID == groupID:
			node.Hidden = true
		}
	}

	return updatedNodes, updatedEdges
}

// ExpandGroup inverts CollapseGroup exactly: rerouted edges return to their
// recorded original endpoints and the reroute metadata is stripped, internal
// edges and members are unhidden, and group geometry is recomputed from the
// current member bounds. A missing group id is a no-op.
func ExpandGroup(groupID string, nodes []graph.Node, edges []graph.Edge) ([]graph.Node, []graph.Edge) {
	if _, ok := findGroup(groupID, nodes); !ok {
		return nodes, edges
	}

	memberSet := make(map[string]struct{})
	for _, node := range nodes {
		if node.ParentID == groupID {
			memberSet[node.ID] = struct{}{}
		}
	}

	updatedEdges := graph.CloneEdges(edges)
	for i := range updatedEdges {
		edge := &updatedEdges[i]
		if edge.Reroute != nil {
			if edge.Target == groupID && edge.Reroute.OriginalTarget != nil {
				edge.Target = edge.Reroute.OriginalTarget.Node
				edge.TargetHandle = edge.Reroute.OriginalTarget.Handle
				edge.Reroute.OriginalTarget = nil
			}
			if edge.Source == groupID && edge.Reroute.OriginalSource != nil {
				edge.Source = edge.Reroute.OriginalSource.Node
				edge.SourceHandle = edge.Reroute.OriginalSource.Handle
				edge.Reroute.OriginalSource = nil
			}
			if edge.Reroute.OriginalSource == nil && edge.Reroute.OriginalTarget == nil {
				edge.Reroute = nil
			}
		}

		_, srcMember := memberSet[edge.Source]
		_, dstMember := memberSet[edge.Target]
		if srcMember && dstMember {
			edge.Hidden = false
		}
	}

	updatedNodes := graph.CloneNodes(nodes)
	for i := range updatedNodes {
		node := &updatedNodes[i]
		switch {
		case node.ID == groupID:
			if node.Data == nil {
				node.Data = make(map[string]any)
			}
			node.Data[DataCollapsed] = false
			delete(node.Data, DataProxyHandles)
		case node.ParentID == groupID:
			node.Hidden = false
		}
	}

	return RefreshBounds(groupID, updatedNodes, nil), updatedEdges
}

// CanonicalSnapshot returns the graph with every collapsed group temporarily
// expanded, so the result carries no proxy edges and no hidden members, then
// re-marks those groups as collapsed in their data so a later reload can
// re-collapse them. Translation, diffing, and export operate only on this
// form.
func CanonicalSnapshot(nodes []graph.Node, edges []graph.Edge) ([]graph.Node, []graph.Edge) {
	var collapsedIDs []string
	for _, node := range nodes {
		if node.Kind == graph.KindGroup && IsCollapsed(node) {
			collapsedIDs = append(collapsedIDs, node.ID)
		}
	}
	if len(collapsedIDs) == 0 {
		return nodes, edges
	}

	outNodes, outEdges := nodes, edges
	for _, id := range collapsedIDs {
		outNodes, outEdges = ExpandGroup(id, outNodes, outEdges)
	}

	for i := range outNodes {
		node := &outNodes[i]
		if node.Kind != graph.KindGroup {
			continue
		}
		for _, id := range collapsedIDs {
			if node.ID == id {
				node.Data[DataCollapsed] = true
			}
		}
	}

	return outNodes, outEdges
}
