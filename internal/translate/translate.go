// Package translate projects the canonical canvas graph into the engine's
// versioned input shape. Input must already be in canonical form: all groups
// expanded, no proxy edges. Group and annotation nodes never reach the engine.
package translate

import (
	"math"

	"github.com/gridflow/gridflow/internal/graph"
	"github.com/gridflow/gridflow/internal/protocol"
)

// Default handle names used when an edge leaves them unset.
const (
	DefaultSourceHandle = "out"
	DefaultTargetHandle = "in"
)

// Logical node kinds the translator remaps to concrete operation identifiers.
const (
	KindProbe          = "probe"
	KindConstantPicker = "constant_picker"
	KindMaterialPicker = "material_picker"

	opDisplay = "display"
	opLiteral = "literal"

	// SelectionCustom marks a user-defined value on a picker block.
	SelectionCustom = "custom"
)

// Data keys the translator consumes.
const (
	DataBindings  = "bindings"
	DataSelection = "selection"
)

// Binding is an indirect input reference resolved at translation time. The
// engine never sees bindings, only concrete numbers.
type Binding struct {
	Source string // "literal", "constant", or "variable"
	Value  float64
	Name   string
}

// Binding sources.
const (
	BindLiteral  = "literal"
	BindConstant = "constant"
	BindVariable = "variable"
)

// Options supplies the binding-resolution context: named constant and
// variable lookup tables. A nil Options skips binding resolution entirely.
type Options struct {
	Constants map[string]float64
	Variables map[string]float64
}

// selectorOps maps each picker kind's selection to the concrete operation
// identifier the engine evaluates.
var selectorOps = map[string]map[string]string{
	KindConstantPicker: {
		"pi":       "const_pi",
		"e":        "const_e",
		"gravity":  "const_gravity",
		"avogadro": "const_avogadro",
	},
	KindMaterialPicker: {
		"steel":    "material_steel",
		"aluminum": "material_aluminum",
		"titanium": "material_titanium",
		"concrete": "material_concrete",
	},
}

// ToEngineSnapshot projects a canonical graph into the engine input schema.
// Group and annotation nodes are dropped, edges are kept only when both
// endpoints survive, and handle names default to "out"/"in" when unset.
func ToEngineSnapshot(nodes []graph.Node, edges []graph.Edge, opts *Options) protocol.EngineSnapshot {
	snapshot := protocol.EngineSnapshot{Version: protocol.ContractVersion}

	kept := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if !graph.IsEvaluable(node.Kind) {
			continue
		}
		kept[node.ID] = struct{}{}
		snapshot.Nodes = append(snapshot.Nodes, NodeDef(node, opts))
	}

	for _, edge := range edges {
		if _, ok := kept[edge.Source]; !ok {
			continue
		}
		if _, ok := kept[edge.Target]; !ok {
			continue
		}
		snapshot.Edges = append(snapshot.Edges, EdgeDef(edge))
	}

	return snapshot
}

// NodeDef projects one evaluable node: the logical kind is remapped to its
// concrete operation identifier and indirect bindings are resolved into the
// data payload, overriding manually entered values for the same input.
func NodeDef(node graph.Node, opts *Options) protocol.EngineNodeDef {
	def := protocol.EngineNodeDef{
		ID:            node.ID,
		OperationKind: operationKind(node),
		Data:          make(map[string]any, len(node.Data)),
	}

	for key, value := range node.Data {
		if key == DataBindings || key == DataSelection {
			continue
		}
		def.Data[key] = value
	}

	if opts != nil {
		for input, value := range resolveBindings(node, opts) {
			def.Data[input] = value
		}
	}

	if len(def.Data) == 0 {
		def.Data = nil
	}
	return def
}

// EdgeDef projects one edge, applying handle defaults.
func EdgeDef(edge graph.Edge) protocol.EngineEdgeDef {
	def := protocol.EngineEdgeDef{
		ID:           edge.ID,
		Source:       edge.Source,
		SourceHandle: edge.SourceHandle,
		Target:       edge.Target,
		TargetHandle: edge.TargetHandle,
	}
	if def.SourceHandle == "" {
		def.SourceHandle = DefaultSourceHandle
	}
	if def.TargetHandle == "" {
		def.TargetHandle = DefaultTargetHandle
	}
	return def
}

func operationKind(node graph.Node) string {
	switch node.Kind {
	case KindProbe:
		return opDisplay
	case KindConstantPicker, KindMaterialPicker:
		selection, _ := node.Data[DataSelection].(string)
		if selection == SelectionCustom {
			return opLiteral
		}
		if op, ok := selectorOps[node.Kind][selection]; ok {
			return op
		}
		// Unknown selection degrades to a literal; the value it carries is
		// still forwarded, so one bad pick never aborts translation.
		return opLiteral
	}
	return node.Kind
}

// resolveBindings turns every indirect input reference on the node into a
// concrete number. Missing or invalid references resolve to NaN rather than
// failing, so one unresolved reference never blocks the rest of the graph.
func resolveBindings(node graph.Node, opts *Options) map[string]float64 {
	bindings := bindingMap(node.Data[DataBindings])
	if len(bindings) == 0 {
		return nil
	}

	resolved := make(map[string]float64, len(bindings))
	for input, binding := range bindings {
		resolved[input] = resolveBinding(binding, opts)
	}
	return resolved
}

// bindingMap accepts both the typed in-memory form and the generic map shape
// produced by decoding a document from disk.
func bindingMap(raw any) map[string]Binding {
	switch typed := raw.(type) {
	case map[string]Binding:
		return typed
	case map[string]any:
		out := make(map[string]Binding, len(typed))
		for input, entry := range typed {
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			binding := Binding{}
			binding.Source, _ = fields["source"].(string)
			binding.Name, _ = fields["name"].(string)
			binding.Value = asFloat(fields["value"])
			out[input] = binding
		}
		return out
	}
	return nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func resolveBinding(binding Binding, opts *Options) float64 {
	switch binding.Source {
	case BindLiteral:
		return binding.Value
	case BindConstant:
		if value, ok := opts.Constants[binding.Name]; ok {
			return value
		}
	case BindVariable:
		if value, ok := opts.Variables[binding.Name]; ok {
			return value
		}
	}
	return math.NaN()
}
