package errors

import (
	"fmt"
)

// ParseError represents a graph document decoding failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures a structural precondition violation, rejected before
// any graph state is mutated.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProtocolError represents an error response received across the engine boundary.
// Code and Message are surfaced to the caller verbatim.
type ProtocolError struct {
	Code    string
	Message string
}

// NewProtocolError constructs a ProtocolError.
func NewProtocolError(code, message string) error {
	return &ProtocolError{Code: code, Message: message}
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("engine error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("engine error: %s", e.Message)
}

// EvalError represents a runtime failure while evaluating a single node.
type EvalError struct {
	NodeID string
	Err    error
}

// NewEvalError constructs an EvalError.
func NewEvalError(nodeID string, err error) error {
	return &EvalError{NodeID: nodeID, Err: err}
}

func (e *EvalError) Error() string {
	if e == nil {
		return ""
	}
	if e.NodeID != "" {
		return fmt.Sprintf("evaluation error on node %s: %v", e.NodeID, e.Err)
	}
	return fmt.Sprintf("evaluation error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *EvalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
