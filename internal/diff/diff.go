// Package diff computes the minimal ordered patch between two canonical graph
// states. Both inputs must be canonical form; group and annotation nodes are
// ignored, as is anything irrelevant to evaluation such as node positions.
package diff

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gridflow/gridflow/internal/graph"
	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/translate"
)

// Graph computes the ordered patch operations transforming prev into next.
// Nodes are compared by id with deep equality on the translated data payload
// only, so a binding whose resolution context moved between the two states
// shows up as a data update even when the raw node is untouched. Edges are
// compared by id and never diffed for endpoint mutation; an edge changing
// endpoints must arrive as remove+add. Removals are emitted before additions
// so an engine enforcing single-writer-per-port never sees a conflicting
// transient state.
func Graph(prevNodes []graph.Node, prevEdges []graph.Edge, nextNodes []graph.Node, nextEdges []graph.Edge, prevOpts, nextOpts *translate.Options) []protocol.PatchOp {
	prevDefs := evaluableDefs(prevNodes, prevOpts)
	nextDefs := evaluableDefs(nextNodes, nextOpts)

	var removeNodes, addNodes, updates []protocol.PatchOp
	readded := make(map[string]struct{})

	for _, node := range prevNodes {
		prevDef, ok := prevDefs[node.ID]
		if !ok {
			continue
		}
		nextDef, stillThere := nextDefs[node.ID]
		if !stillThere {
			removeNodes = append(removeNodes, protocol.RemoveNode(node.ID))
			continue
		}
		// A changed operation kind is a different node to the engine.
		if prevDef.OperationKind != nextDef.OperationKind {
			removeNodes = append(removeNodes, protocol.RemoveNode(node.ID))
			readded[node.ID] = struct{}{}
			continue
		}
		// An unresolved binding resolves to NaN on both sides; NaN must
		// compare equal to itself or such a node would diff forever.
		if !cmp.Equal(prevDef.Data, nextDef.Data, cmpopts.EquateNaNs()) {
			updates = append(updates, protocol.UpdateNodeData(node.ID, nextDef.Data))
		}
	}

	for _, node := range nextNodes {
		nextDef, ok := nextDefs[node.ID]
		if !ok {
			continue
		}
		prevDef, existed := prevDefs[node.ID]
		if !existed || prevDef.OperationKind != nextDef.OperationKind {
			addNodes = append(addNodes, protocol.AddNode(nextDef))
		}
	}

	// Only edges whose endpoints are evaluable in the next graph participate;
	// edges orphaned by a node removal are cleaned up by that removal.
	eligible := func(edge graph.Edge) bool {
		_, srcOK := nextDefs[edge.Source]
		_, dstOK := nextDefs[edge.Target]
		return srcOK && dstOK
	}

	prevEdgeIDs := make(map[string]struct{}, len(prevEdges))
	for _, edge := range prevEdges {
		if eligible(edge) {
			prevEdgeIDs[edge.ID] = struct{}{}
		}
	}
	nextEdgeIDs := make(map[string]struct{}, len(nextEdges))
	for _, edge := range nextEdges {
		if eligible(edge) {
			nextEdgeIDs[edge.ID] = struct{}{}
		}
	}

	// An edge touching a node that is removed and re-added goes down with the
	// removal cascade, so it must be sent again even though its id survived.
	touchesReadded := func(edge graph.Edge) bool {
		if _, ok := readded[edge.Source]; ok {
			return true
		}
		_, ok := readded[edge.Target]
		return ok
	}

	var removeEdges, addEdges []protocol.PatchOp
	for _, edge := range prevEdges {
		if _, was := prevEdgeIDs[edge.ID]; !was {
			continue
		}
		if _, still := nextEdgeIDs[edge.ID]; !still {
			removeEdges = append(removeEdges, protocol.RemoveEdge(edge.ID))
		}
	}
	for _, edge := range nextEdges {
		if _, now := nextEdgeIDs[edge.ID]; !now {
			continue
		}
		_, was := prevEdgeIDs[edge.ID]
		if !was || touchesReadded(edge) {
			addEdges = append(addEdges, protocol.AddEdge(translate.EdgeDef(edge)))
		}
	}

	ops := make([]protocol.PatchOp, 0, len(removeEdges)+len(removeNodes)+len(updates)+len(addNodes)+len(addEdges))
	ops = append(ops, removeEdges...)
	ops = append(ops, removeNodes...)
	ops = append(ops, updates...)
	ops = append(ops, addNodes...)
	ops = append(ops, addEdges...)
	if len(ops) == 0 {
		return nil
	}
	return ops
}

// HasStructuralChange reports whether any op adds or removes a node or edge.
// An empty list or a list of pure data updates is non-structural.
func HasStructuralChange(ops []protocol.PatchOp) bool {
	for _, op := range ops {
		switch op.Kind {
		case protocol.OpAddNode, protocol.OpRemoveNode, protocol.OpAddEdge, protocol.OpRemoveEdge:
			return true
		}
	}
	return false
}

func evaluableDefs(nodes []graph.Node, opts *translate.Options) map[string]protocol.EngineNodeDef {
	defs := make(map[string]protocol.EngineNodeDef, len(nodes))
	for _, node := range nodes {
		if graph.IsEvaluable(node.Kind) {
			defs[node.ID] = translate.NodeDef(node, opts)
		}
	}
	return defs
}
