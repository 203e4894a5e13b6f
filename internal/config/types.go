// Package config loads and validates graph documents: the on-disk YAML form
// of a canvas graph together with its named constants and variable tables.
package config

// Document is the root of a graph document file.
type Document struct {
	Version   string             `yaml:"version" validate:"required,semver"`
	Name      string             `yaml:"name" validate:"required"`
	Constants map[string]float64 `yaml:"constants,omitempty"`
	Variables []Variable         `yaml:"variables,omitempty" validate:"dive"`
	Nodes     []NodeSpec         `yaml:"nodes" validate:"required,min=1,dive"`
	Edges     []EdgeSpec         `yaml:"edges,omitempty" validate:"dive"`
}

// Variable is a named value with alternative cases; Active selects which case
// feeds binding resolution.
type Variable struct {
	Name   string             `yaml:"name" validate:"required,node_id"`
	Values map[string]float64 `yaml:"values" validate:"required,min=1"`
	Active string             `yaml:"active" validate:"required"`
}

// PositionSpec is a canvas coordinate.
type PositionSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// NodeSpec is one node as written in a document.
type NodeSpec struct {
	ID       string         `yaml:"id" validate:"required,node_id"`
	Kind     string         `yaml:"kind" validate:"required"`
	Data     map[string]any `yaml:"data,omitempty"`
	Parent   string         `yaml:"parent,omitempty"`
	Position PositionSpec   `yaml:"position,omitempty"`
	Width    float64        `yaml:"width,omitempty" validate:"omitempty,gt=0"`
	Height   float64        `yaml:"height,omitempty" validate:"omitempty,gt=0"`
}

// EdgeSpec is one connection as written in a document. Handles default to the
// single-port convention when omitted.
type EdgeSpec struct {
	ID           string `yaml:"id" validate:"required,node_id"`
	Source       string `yaml:"source" validate:"required"`
	SourceHandle string `yaml:"source_handle,omitempty"`
	Target       string `yaml:"target" validate:"required"`
	TargetHandle string `yaml:"target_handle,omitempty"`
}
