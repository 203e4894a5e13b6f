package engine

import (
	"sort"
	"time"

	"github.com/gridflow/gridflow/internal/protocol"
)

// store is the engine's persistent graph state, confined to the engine
// goroutine. Datasets survive snapshot reloads; everything else is replaced.
type store struct {
	nodes       map[string]protocol.EngineNodeDef
	edges       map[string]protocol.EngineEdgeDef
	values      map[string]protocol.Value
	datasets    map[string]protocol.Dataset
	evaluations int
}

func newStore() *store {
	return &store{
		nodes:    make(map[string]protocol.EngineNodeDef),
		edges:    make(map[string]protocol.EngineEdgeDef),
		values:   make(map[string]protocol.Value),
		datasets: make(map[string]protocol.Dataset),
	}
}

func (e *Engine) loadSnapshot(req protocol.Request) protocol.Response {
	e.store.nodes = make(map[string]protocol.EngineNodeDef, len(req.Snapshot.Nodes))
	e.store.edges = make(map[string]protocol.EngineEdgeDef, len(req.Snapshot.Edges))
	e.store.values = make(map[string]protocol.Value)

	for _, node := range req.Snapshot.Nodes {
		e.store.nodes[node.ID] = node
	}
	for _, edge := range req.Snapshot.Edges {
		e.store.edges[edge.ID] = edge
	}

	dirty := make(map[string]struct{}, len(e.store.nodes))
	for id := range e.store.nodes {
		dirty[id] = struct{}{}
	}

	outcome := e.evaluate(dirty, req.CorrelationID)

	// The response crosses the boundary; it must not alias engine state.
	values := make(map[string]protocol.Value, len(e.store.values))
	for id, value := range e.store.values {
		values[id] = value
	}

	return protocol.Response{
		Kind:          protocol.RespResult,
		CorrelationID: req.CorrelationID,
		Result: &protocol.Result{
			Values:        values,
			Diagnostics:   outcome.diagnostics,
			ElapsedTimeUs: outcome.elapsedUs,
			Partial:       outcome.partial,
		},
	}
}

func (e *Engine) applyPatch(req protocol.Request) protocol.Response {
	dirty := make(map[string]struct{})

	for _, op := range req.Patch {
		switch op.Kind {
		case protocol.OpAddNode:
			if op.Node != nil {
				e.store.nodes[op.Node.ID] = *op.Node
				dirty[op.Node.ID] = struct{}{}
			}
		case protocol.OpRemoveNode:
			delete(e.store.nodes, op.NodeID)
			delete(e.store.values, op.NodeID)
			for id, edge := range e.store.edges {
				if edge.Source == op.NodeID || edge.Target == op.NodeID {
					if edge.Source == op.NodeID {
						dirty[edge.Target] = struct{}{}
					}
					delete(e.store.edges, id)
				}
			}
		case protocol.OpUpdateNodeData:
			if node, ok := e.store.nodes[op.NodeID]; ok {
				node.Data = op.Data
				e.store.nodes[op.NodeID] = node
				dirty[op.NodeID] = struct{}{}
			}
		case protocol.OpAddEdge:
			if op.Edge != nil {
				e.store.edges[op.Edge.ID] = *op.Edge
				dirty[op.Edge.Target] = struct{}{}
			}
		case protocol.OpRemoveEdge:
			if edge, ok := e.store.edges[op.EdgeID]; ok {
				delete(e.store.edges, op.EdgeID)
				dirty[edge.Target] = struct{}{}
			}
		}
	}

	// Removed nodes may linger in the dirty set via their former edges.
	for id := range dirty {
		if _, ok := e.store.nodes[id]; !ok {
			delete(dirty, id)
		}
	}

	outcome := e.evaluate(e.withDownstream(dirty), req.CorrelationID)
	return protocol.Response{
		Kind:          protocol.RespIncremental,
		CorrelationID: req.CorrelationID,
		Incremental: &protocol.Incremental{
			ChangedValues:  outcome.changed,
			Diagnostics:    outcome.diagnostics,
			ElapsedTimeUs:  outcome.elapsedUs,
			EvaluatedCount: outcome.evaluated,
			TotalCount:     len(e.store.nodes),
			Partial:        outcome.partial,
		},
	}
}

func (e *Engine) setInput(req protocol.Request) protocol.Response {
	input := req.SetInput
	node, ok := e.store.nodes[input.NodeID]
	if !ok {
		return errorResponse(req, "UNKNOWN_NODE", "setInput target does not exist")
	}

	if node.Data == nil {
		node.Data = make(map[string]any, 1)
	}
	node.Data[input.Input] = input.Value
	e.store.nodes[input.NodeID] = node

	dirty := e.withDownstream(map[string]struct{}{input.NodeID: {}})
	outcome := e.evaluate(dirty, req.CorrelationID)
	return protocol.Response{
		Kind:          protocol.RespIncremental,
		CorrelationID: req.CorrelationID,
		Incremental: &protocol.Incremental{
			ChangedValues:  outcome.changed,
			Diagnostics:    outcome.diagnostics,
			ElapsedTimeUs:  outcome.elapsedUs,
			EvaluatedCount: outcome.evaluated,
			TotalCount:     len(e.store.nodes),
			Partial:        outcome.partial,
		},
	}
}

// withDownstream closes the dirty set over everything reachable from it.
func (e *Engine) withDownstream(dirty map[string]struct{}) map[string]struct{} {
	downstream := make(map[string][]string)
	for _, edge := range e.store.edges {
		downstream[edge.Source] = append(downstream[edge.Source], edge.Target)
	}

	queue := make([]string, 0, len(dirty))
	for id := range dirty {
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range downstream[id] {
			if _, seen := dirty[next]; seen {
				continue
			}
			dirty[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return dirty
}

type evalOutcome struct {
	changed     map[string]protocol.Value
	diagnostics []protocol.Diagnostic
	elapsedUs   int64
	evaluated   int
	partial     bool
}

// evaluate runs the dirty nodes in topological order using Kahn's algorithm.
// Nodes caught in a cycle receive error values instead of aborting the whole
// request. Exceeding the evaluation limit stops early with partial set.
func (e *Engine) evaluate(dirty map[string]struct{}, correlationID uint64) evalOutcome {
	start := time.Now()
	outcome := evalOutcome{changed: make(map[string]protocol.Value)}

	order, cyclic := e.topoOrder()

	inputs := make(map[string][]protocol.EngineEdgeDef)
	for _, edge := range e.store.edges {
		inputs[edge.Target] = append(inputs[edge.Target], edge)
	}

	for _, id := range order {
		if _, isDirty := dirty[id]; !isDirty {
			continue
		}
		if e.opts.EvalLimit > 0 && outcome.evaluated >= e.opts.EvalLimit {
			outcome.partial = true
			break
		}

		node := e.store.nodes[id]
		value, diags, evalErr := evalNode(node, inputs[id], e.store)
		if evalErr != nil {
			e.opts.Log.Error(evalErr, "node evaluation failed")
		}
		e.store.values[id] = value
		e.store.evaluations++
		outcome.changed[id] = value
		outcome.evaluated++
		outcome.diagnostics = append(outcome.diagnostics, diags...)

		if e.opts.ProgressEvery > 0 && outcome.evaluated%e.opts.ProgressEvery == 0 {
			e.responses <- protocol.Response{
				Kind:          protocol.RespProgress,
				CorrelationID: correlationID,
				Progress:      &protocol.Progress{Evaluated: outcome.evaluated, Estimated: len(dirty)},
			}
		}
	}

	for _, id := range cyclic {
		value := protocol.ErrorValue("node is part of a dependency cycle")
		e.store.values[id] = value
		outcome.changed[id] = value
		outcome.diagnostics = append(outcome.diagnostics, protocol.Diagnostic{
			NodeID:  id,
			Level:   protocol.LevelError,
			Code:    "CYCLE",
			Message: "node is part of a dependency cycle",
		})
	}

	outcome.elapsedUs = time.Since(start).Microseconds()
	return outcome
}

// topoOrder computes a stable topological order over the persistent graph and
// returns any nodes left inside cycles separately.
func (e *Engine) topoOrder() (order []string, cyclic []string) {
	indegree := make(map[string]int, len(e.store.nodes))
	for id := range e.store.nodes {
		indegree[id] = 0
	}
	dependents := make(map[string][]string)
	for _, edge := range e.store.edges {
		if _, ok := e.store.nodes[edge.Source]; !ok {
			continue
		}
		if _, ok := e.store.nodes[edge.Target]; !ok {
			continue
		}
		indegree[edge.Target]++
		dependents[edge.Source] = append(dependents[edge.Source], edge.Target)
	}

	var queue []string
	for id, degree := range indegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var released []string
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		sort.Strings(released)
		queue = append(queue, released...)
	}

	if len(order) != len(e.store.nodes) {
		ordered := make(map[string]struct{}, len(order))
		for _, id := range order {
			ordered[id] = struct{}{}
		}
		for id := range e.store.nodes {
			if _, ok := ordered[id]; !ok {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
	}
	return order, cyclic
}
