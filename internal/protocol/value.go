package protocol

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind discriminates the closed Value union.
type ValueKind string

const (
	// ValueScalar is a single number, including NaN and ±Infinity.
	ValueScalar ValueKind = "scalar"
	// ValueVector is an ordered number sequence.
	ValueVector ValueKind = "vector"
	// ValueTable is named columns over row-major numeric rows.
	ValueTable ValueKind = "table"
	// ValueError is an evaluation failure carried as a value.
	ValueError ValueKind = "error"
)

// Table holds named columns and row-major numeric rows.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Value is the closed result union produced by the engine. Exactly the field
// matching Kind is meaningful.
type Value struct {
	Kind    ValueKind
	Scalar  float64
	Vector  []float64
	Table   *Table
	Message string
}

// Scalar wraps a number as a scalar value.
func Scalar(v float64) Value { return Value{Kind: ValueScalar, Scalar: v} }

// Vector wraps a number sequence as a vector value.
func Vector(v []float64) Value { return Value{Kind: ValueVector, Vector: v} }

// ErrorValue wraps a failure message as an error value.
func ErrorValue(msg string) Value { return Value{Kind: ValueError, Message: msg} }

// wireNumber round-trips NaN and ±Infinity through JSON explicitly, since
// plain JSON numbers cannot represent them.
type wireNumber float64

func (n wireNumber) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(f)
}

func (n *wireNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = wireNumber(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("number or sentinel string expected: %s", data)
	}
	switch s {
	case "NaN":
		*n = wireNumber(math.NaN())
	case "Infinity":
		*n = wireNumber(math.Inf(1))
	case "-Infinity":
		*n = wireNumber(math.Inf(-1))
	default:
		return fmt.Errorf("unknown numeric sentinel %q", s)
	}
	return nil
}

type wireValue struct {
	Kind    ValueKind      `json:"kind"`
	Scalar  *wireNumber    `json:"scalar,omitempty"`
	Vector  []wireNumber   `json:"vector,omitempty"`
	Columns []string       `json:"columns,omitempty"`
	Rows    [][]wireNumber `json:"rows,omitempty"`
	Message string         `json:"message,omitempty"`
}

// MarshalJSON encodes the value with explicit NaN/Infinity sentinels.
func (v Value) MarshalJSON() ([]byte, error) {
	wire := wireValue{Kind: v.Kind}
	switch v.Kind {
	case ValueScalar:
		scalar := wireNumber(v.Scalar)
		wire.Scalar = &scalar
	case ValueVector:
		wire.Vector = make([]wireNumber, len(v.Vector))
		for i, f := range v.Vector {
			wire.Vector[i] = wireNumber(f)
		}
	case ValueTable:
		if v.Table != nil {
			wire.Columns = v.Table.Columns
			wire.Rows = make([][]wireNumber, len(v.Table.Rows))
			for i, row := range v.Table.Rows {
				wire.Rows[i] = make([]wireNumber, len(row))
				for j, f := range row {
					wire.Rows[i][j] = wireNumber(f)
				}
			}
		}
	case ValueError:
		wire.Message = v.Message
	default:
		return nil, fmt.Errorf("unknown value kind %q", v.Kind)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a value produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var wire wireValue
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*v = Value{Kind: wire.Kind}
	switch wire.Kind {
	case ValueScalar:
		if wire.Scalar != nil {
			v.Scalar = float64(*wire.Scalar)
		}
	case ValueVector:
		v.Vector = make([]float64, len(wire.Vector))
		for i, n := range wire.Vector {
			v.Vector[i] = float64(n)
		}
	case ValueTable:
		table := &Table{Columns: wire.Columns, Rows: make([][]float64, len(wire.Rows))}
		for i, row := range wire.Rows {
			table.Rows[i] = make([]float64, len(row))
			for j, n := range row {
				table.Rows[i][j] = float64(n)
			}
		}
		v.Table = table
	case ValueError:
		v.Message = wire.Message
	default:
		return fmt.Errorf("unknown value kind %q", wire.Kind)
	}
	return nil
}
