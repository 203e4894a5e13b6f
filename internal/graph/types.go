package graph

// Node kinds with reserved behavior. KindGroup is a virtual container and is
// never evaluated; annotation kinds are visual-only and are never evaluated.
const (
	KindGroup = "group"
	KindNote  = "note"
	KindLabel = "label"
)

// Position locates a node on the canvas. When the node has a parent, the
// coordinates are relative to the parent's origin.
type Position struct {
	X float64
	Y float64
}

// Node is one vertex of the editable canvas graph.
type Node struct {
	ID       string
	Kind     string
	Data     map[string]any
	ParentID string
	Position Position
	Width    float64
	Height   float64
	Hidden   bool
}

// Endpoint names one side of an edge: a node plus the handle on that node.
type Endpoint struct {
	Node   string
	Handle string
}

// Reroute records the original endpoints of an edge whose connection was moved
// onto a collapsed group's proxy handles. It carries enough information to
// invert the reroute exactly.
type Reroute struct {
	OriginalSource *Endpoint
	OriginalTarget *Endpoint
}

// Edge is one connection of the canvas graph. An edge is direct when Reroute
// is nil and rerouted when Reroute is set; no other states exist.
//
// Invariant: at most one edge terminates on a given (Target, TargetHandle)
// pair at any time.
type Edge struct {
	ID           string
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
	Hidden       bool
	Reroute      *Reroute
}

// IsAnnotation reports whether the kind is a visual-only annotation.
func IsAnnotation(kind string) bool {
	return kind == KindNote || kind == KindLabel
}

// IsEvaluable reports whether a node of this kind participates in evaluation.
func IsEvaluable(kind string) bool {
	return kind != KindGroup && !IsAnnotation(kind)
}

// NodesByID builds a lookup table over a node slice.
func NodesByID(nodes []Node) map[string]Node {
	out := make(map[string]Node, len(nodes))
	for _, node := range nodes {
		out[node.ID] = node
	}
	return out
}

// CloneNodes returns a shallow structural copy with independent Data maps.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, node := range nodes {
		out[i] = node
		if node.Data != nil {
			data := make(map[string]any, len(node.Data))
			for k, v := range node.Data {
				data[k] = v
			}
			out[i].Data = data
		}
	}
	return out
}

// CloneEdges returns a copy of the edge slice with independent Reroute records.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	for i, edge := range edges {
		out[i] = edge
		if edge.Reroute != nil {
			reroute := *edge.Reroute
			if reroute.OriginalSource != nil {
				src := *reroute.OriginalSource
				reroute.OriginalSource = &src
			}
			if reroute.OriginalTarget != nil {
				dst := *reroute.OriginalTarget
				reroute.OriginalTarget = &dst
			}
			out[i].Reroute = &reroute
		}
	}
	return out
}
