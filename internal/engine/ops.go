package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gridflow/gridflow/internal/protocol"
	gferrors "github.com/gridflow/gridflow/pkg/errors"
)

// opFunc evaluates one node given its resolved input values and node data.
type opFunc func(in inputValues, data map[string]any, st *store) (protocol.Value, error)

type inputValues map[string]protocol.Value

var operations = map[string]opFunc{
	"literal":  opLiteral,
	"add":      binaryOp(func(a, b float64) float64 { return a + b }),
	"sub":      binaryOp(func(a, b float64) float64 { return a - b }),
	"mul":      binaryOp(func(a, b float64) float64 { return a * b }),
	"div":      binaryOp(func(a, b float64) float64 { return a / b }),
	"pow":      binaryOp(math.Pow),
	"neg":      opNeg,
	"gt":       binaryOp(boolOp(func(a, b float64) bool { return a > b })),
	"lt":       binaryOp(boolOp(func(a, b float64) bool { return a < b })),
	"eq":       binaryOp(boolOp(func(a, b float64) bool { return a == b })),
	"sum":      vectorReduce(floats.Sum),
	"mean":     vectorReduce(func(v []float64) float64 { return stat.Mean(v, nil) }),
	"min":      vectorReduce(floats.Min),
	"max":      vectorReduce(floats.Max),
	"norm":     vectorReduce(func(v []float64) float64 { return floats.Norm(v, 2) }),
	"scale":    opScale,
	"linspace": opLinspace,
	"vector":   opVector,
	"display":  opDisplay,
	"dataset":  opDataset,
	"column":   opColumn,

	"const_pi":       constant(math.Pi),
	"const_e":        constant(math.E),
	"const_gravity":  constant(9.80665),
	"const_avogadro": constant(6.02214076e23),

	"material_steel":    material(7850, 200e9),
	"material_aluminum": material(2700, 69e9),
	"material_titanium": material(4500, 114e9),
	"material_concrete": material(2400, 30e9),
}

// OperationKinds lists the evaluable operation catalog in stable order.
func OperationKinds() []string {
	kinds := make([]string, 0, len(operations))
	for kind := range operations {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// evalNode resolves the node's inputs from upstream values and runs its
// operation. Failures become error values plus diagnostics; they never abort
// the surrounding evaluation, but the typed error is returned for logging.
func evalNode(node protocol.EngineNodeDef, incoming []protocol.EngineEdgeDef, st *store) (protocol.Value, []protocol.Diagnostic, error) {
	op, ok := operations[node.OperationKind]
	if !ok {
		err := gferrors.NewEvalError(node.ID, fmt.Errorf("unknown operation kind %q", node.OperationKind))
		message := fmt.Sprintf("unknown operation kind %q", node.OperationKind)
		return protocol.ErrorValue(message), []protocol.Diagnostic{{
			NodeID: node.ID, Level: protocol.LevelError, Code: "UNKNOWN_OP", Message: message,
		}}, err
	}

	in := make(inputValues, len(incoming))
	for _, edge := range incoming {
		if upstream, ok := st.values[edge.Source]; ok {
			in[edge.TargetHandle] = upstream
		}
	}

	value, err := op(in, node.Data, st)
	if err != nil {
		return protocol.ErrorValue(err.Error()), []protocol.Diagnostic{{
			NodeID: node.ID, Level: protocol.LevelError, Code: "EVAL_FAILED", Message: err.Error(),
		}}, gferrors.NewEvalError(node.ID, err)
	}
	return value, nil, nil
}

// scalarInput resolves a named input from an incoming edge, falling back to a
// number recorded in node data. Bindings were already resolved into data by
// the translator, so a plain float is all that can appear here.
func scalarInput(name string, in inputValues, data map[string]any) (float64, error) {
	if value, ok := in[name]; ok {
		switch value.Kind {
		case protocol.ValueScalar:
			return value.Scalar, nil
		case protocol.ValueError:
			return 0, fmt.Errorf("input %q carries an upstream error: %s", name, value.Message)
		default:
			return 0, fmt.Errorf("input %q is not a scalar", name)
		}
	}
	if raw, ok := data[name]; ok {
		if f, ok := toFloat(raw); ok {
			return f, nil
		}
		return 0, fmt.Errorf("input %q is not numeric", name)
	}
	return 0, fmt.Errorf("missing input %q", name)
}

func vectorInput(name string, in inputValues) ([]float64, error) {
	value, ok := in[name]
	if !ok {
		return nil, fmt.Errorf("missing input %q", name)
	}
	switch value.Kind {
	case protocol.ValueVector:
		return value.Vector, nil
	case protocol.ValueError:
		return nil, fmt.Errorf("input %q carries an upstream error: %s", name, value.Message)
	default:
		return nil, fmt.Errorf("input %q is not a vector", name)
	}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func opLiteral(_ inputValues, data map[string]any, _ *store) (protocol.Value, error) {
	raw, ok := data["value"]
	if !ok {
		return protocol.Value{}, fmt.Errorf("literal has no value")
	}
	f, ok := toFloat(raw)
	if !ok {
		return protocol.Value{}, fmt.Errorf("literal value is not numeric")
	}
	return protocol.Scalar(f), nil
}

// boolOp lifts a comparison into the scalar domain as 1 or 0.
func boolOp(compare func(a, b float64) bool) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if compare(a, b) {
			return 1
		}
		return 0
	}
}

func binaryOp(apply func(a, b float64) float64) opFunc {
	return func(in inputValues, data map[string]any, _ *store) (protocol.Value, error) {
		lhs, err := scalarInput("lhs", in, data)
		if err != nil {
			return protocol.Value{}, err
		}
		rhs, err := scalarInput("rhs", in, data)
		if err != nil {
			return protocol.Value{}, err
		}
		return protocol.Scalar(apply(lhs, rhs)), nil
	}
}

func opNeg(in inputValues, data map[string]any, _ *store) (protocol.Value, error) {
	v, err := scalarInput("in", in, data)
	if err != nil {
		return protocol.Value{}, err
	}
	return protocol.Scalar(-v), nil
}

func vectorReduce(reduce func([]float64) float64) opFunc {
	return func(in inputValues, _ map[string]any, _ *store) (protocol.Value, error) {
		v, err := vectorInput("in", in)
		if err != nil {
			return protocol.Value{}, err
		}
		if len(v) == 0 {
			return protocol.Scalar(math.NaN()), nil
		}
		return protocol.Scalar(reduce(v)), nil
	}
}

func opScale(in inputValues, data map[string]any, _ *store) (protocol.Value, error) {
	v, err := vectorInput("in", in)
	if err != nil {
		return protocol.Value{}, err
	}
	factor, err := scalarInput("factor", in, data)
	if err != nil {
		return protocol.Value{}, err
	}
	scaled := append([]float64(nil), v...)
	floats.Scale(factor, scaled)
	return protocol.Vector(scaled), nil
}

func opLinspace(_ inputValues, data map[string]any, _ *store) (protocol.Value, error) {
	start, err := scalarInput("start", nil, data)
	if err != nil {
		return protocol.Value{}, err
	}
	stop, err := scalarInput("stop", nil, data)
	if err != nil {
		return protocol.Value{}, err
	}
	count, err := scalarInput("count", nil, data)
	if err != nil {
		return protocol.Value{}, err
	}
	n := int(count)
	if n < 2 {
		return protocol.Value{}, fmt.Errorf("linspace needs a count of at least 2")
	}
	return protocol.Vector(floats.Span(make([]float64, n), start, stop)), nil
}

func opVector(_ inputValues, data map[string]any, _ *store) (protocol.Value, error) {
	raw, ok := data["values"]
	if !ok {
		return protocol.Vector(nil), nil
	}
	switch values := raw.(type) {
	case []float64:
		return protocol.Vector(append([]float64(nil), values...)), nil
	case []any:
		out := make([]float64, 0, len(values))
		for _, item := range values {
			f, ok := toFloat(item)
			if !ok {
				return protocol.Value{}, fmt.Errorf("vector element is not numeric")
			}
			out = append(out, f)
		}
		return protocol.Vector(out), nil
	}
	return protocol.Value{}, fmt.Errorf("vector values are not a numeric list")
}

func opDisplay(in inputValues, _ map[string]any, _ *store) (protocol.Value, error) {
	value, ok := in["in"]
	if !ok {
		return protocol.Value{}, fmt.Errorf("display has nothing connected")
	}
	return value, nil
}

func opDataset(_ inputValues, data map[string]any, st *store) (protocol.Value, error) {
	id, _ := data["datasetId"].(string)
	if id == "" {
		return protocol.Value{}, fmt.Errorf("dataset node has no datasetId")
	}
	ds, ok := st.datasets[id]
	if !ok {
		return protocol.Value{}, fmt.Errorf("dataset %q is not registered", id)
	}
	return protocol.Value{Kind: protocol.ValueTable, Table: &protocol.Table{Columns: ds.Columns, Rows: ds.Rows}}, nil
}

func opColumn(in inputValues, data map[string]any, _ *store) (protocol.Value, error) {
	value, ok := in["in"]
	if !ok || value.Kind != protocol.ValueTable || value.Table == nil {
		return protocol.Value{}, fmt.Errorf("column needs a table input")
	}
	name, _ := data["column"].(string)
	idx := -1
	for i, col := range value.Table.Columns {
		if col == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return protocol.Value{}, fmt.Errorf("table has no column %q", name)
	}
	out := make([]float64, 0, len(value.Table.Rows))
	for _, row := range value.Table.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return protocol.Vector(out), nil
}

func constant(value float64) opFunc {
	return func(inputValues, map[string]any, *store) (protocol.Value, error) {
		return protocol.Scalar(value), nil
	}
}

func material(density, youngsModulus float64) opFunc {
	return func(inputValues, map[string]any, *store) (protocol.Value, error) {
		return protocol.Value{Kind: protocol.ValueTable, Table: &protocol.Table{
			Columns: []string{"density", "youngs_modulus"},
			Rows:    [][]float64{{density, youngsModulus}},
		}}, nil
	}
}
