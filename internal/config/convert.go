package config

import (
	"github.com/gridflow/gridflow/internal/graph"
	"github.com/gridflow/gridflow/internal/translate"
)

// Graph converts a validated document into the in-memory canvas model.
// Dimensions left unset in the document fall back to the default node
// geometry.
func (d *Document) Graph() ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, 0, len(d.Nodes))
	for _, spec := range d.Nodes {
		node := graph.Node{
			ID:       spec.ID,
			Kind:     spec.Kind,
			Data:     spec.Data,
			ParentID: spec.Parent,
			Position: graph.Position{X: spec.Position.X, Y: spec.Position.Y},
			Width:    spec.Width,
			Height:   spec.Height,
		}
		if node.Width == 0 {
			node.Width = graph.DefaultNodeWidth
		}
		if node.Height == 0 {
			node.Height = graph.DefaultNodeHeight
		}
		nodes = append(nodes, node)
	}

	edges := make([]graph.Edge, 0, len(d.Edges))
	for _, spec := range d.Edges {
		edge := graph.Edge{
			ID:           spec.ID,
			Source:       spec.Source,
			SourceHandle: spec.SourceHandle,
			Target:       spec.Target,
			TargetHandle: spec.TargetHandle,
		}
		if edge.SourceHandle == "" {
			edge.SourceHandle = translate.DefaultSourceHandle
		}
		if edge.TargetHandle == "" {
			edge.TargetHandle = translate.DefaultTargetHandle
		}
		edges = append(edges, edge)
	}

	return nodes, edges
}

// BindingOptions builds the binding-resolution context from the document's
// constants and the active case of each variable.
func (d *Document) BindingOptions() *translate.Options {
	opts := &translate.Options{
		Constants: make(map[string]float64, len(d.Constants)),
		Variables: make(map[string]float64, len(d.Variables)),
	}
	for name, value := range d.Constants {
		opts.Constants[name] = value
	}
	for _, variable := range d.Variables {
		opts.Variables[variable.Name] = variable.Values[variable.Active]
	}
	return opts
}

// WithVariableCase returns a copy of the binding context with one variable
// switched to a different case. Unknown names or cases return nil.
func (d *Document) WithVariableCase(name, active string) *translate.Options {
	for _, variable := range d.Variables {
		if variable.Name != name {
			continue
		}
		value, ok := variable.Values[active]
		if !ok {
			return nil
		}
		opts := d.BindingOptions()
		opts.Variables[name] = value
		return opts
	}
	return nil
}
