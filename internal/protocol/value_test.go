package protocol

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue_ScalarNaNRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Scalar(math.NaN()))
	require.NoError(t, err)
	require.Contains(t, string(data), `"NaN"`)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, ValueScalar, decoded.Kind)
	require.True(t, math.IsNaN(decoded.Scalar))
}

func TestValue_InfinityRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    float64
		token string
	}{
		{"positive", math.Inf(1), `"Infinity"`},
		{"negative", math.Inf(-1), `"-Infinity"`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(Scalar(tc.in))
			require.NoError(t, err)
			require.Contains(t, string(data), tc.token)

			var decoded Value
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.Equal(t, tc.in, decoded.Scalar)
		})
	}
}

func TestValue_VectorWithSentinelsRoundTrip(t *testing.T) {
	t.Parallel()

	in := Vector([]float64{1.5, math.NaN(), math.Inf(1), -2})
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, ValueVector, decoded.Kind)
	require.Len(t, decoded.Vector, 4)
	require.Equal(t, 1.5, decoded.Vector[0])
	require.True(t, math.IsNaN(decoded.Vector[1]))
	require.True(t, math.IsInf(decoded.Vector[2], 1))
	require.Equal(t, -2.0, decoded.Vector[3])
}

func TestValue_TableRoundTrip(t *testing.T) {
	t.Parallel()

	in := Value{Kind: ValueTable, Table: &Table{
		Columns: []string{"t", "y"},
		Rows:    [][]float64{{0, 1}, {1, math.NaN()}},
	}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, []string{"t", "y"}, decoded.Table.Columns)
	require.Equal(t, 1.0, decoded.Table.Rows[0][1])
	require.True(t, math.IsNaN(decoded.Table.Rows[1][1]))
}

func TestValue_ErrorRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ErrorValue("division by zero"))
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, ValueError, decoded.Kind)
	require.Equal(t, "division by zero", decoded.Message)
}

func TestValue_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	var decoded Value
	require.Error(t, json.Unmarshal([]byte(`{"kind":"matrix"}`), &decoded))
}

func TestValue_RejectsUnknownSentinel(t *testing.T) {
	t.Parallel()

	var decoded Value
	require.Error(t, json.Unmarshal([]byte(`{"kind":"scalar","scalar":"Inf"}`), &decoded))
}

func TestResponse_Terminal(t *testing.T) {
	t.Parallel()

	require.False(t, Response{Kind: RespProgress}.Terminal())
	require.True(t, Response{Kind: RespResult}.Terminal())
	require.True(t, Response{Kind: RespError}.Terminal())
	require.True(t, Response{Kind: RespIncremental}.Terminal())
}
