package graph

// Default node dimensions used when a node has not been measured yet.
const (
	DefaultNodeWidth  = 180.0
	DefaultNodeHeight = 80.0
)

// Geometry supplies measured node dimensions for bounding-box math. The
// canvas layer implements this from its render measurements.
type Geometry interface {
	Size(node Node) (width, height float64)
}

// DefaultGeometry reads dimensions recorded on the node itself and falls back
// to fixed constants for unmeasured nodes.
type DefaultGeometry struct{}

// Size returns the node's recorded dimensions, or the defaults.
func (DefaultGeometry) Size(node Node) (float64, float64) {
	width, height := node.Width, node.Height
	if width <= 0 {
		width = DefaultNodeWidth
	}
	if height <= 0 {
		height = DefaultNodeHeight
	}
	return width, height
}
