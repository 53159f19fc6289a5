package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGo_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"string", "hello", String("hello")},
		{"int", 42, Int(42)},
		{"int64", int64(-7), Int(-7)},
		{"float", 3.5, Float(3.5)},
		{"number_int", json.Number("12"), Int(12)},
		{"number_float", json.Number("2.25"), Float(2.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGo_Nested(t *testing.T) {
	got, err := FromGo(map[string]any{
		"candidates": []any{
			map[string]any{"asin": "B001", "price": 24.99},
			map[string]any{"asin": "B002", "price": 31},
		},
		"count": 2,
	})
	require.NoError(t, err)

	want := Object{
		"candidates": Array{
			Object{"asin": String("B001"), "price": Float(24.99)},
			Object{"asin": String("B002"), "price": Int(31)},
		},
		"count": Int(2),
	}
	assert.Equal(t, want, got)
}

func TestFromGo_UnsupportedType(t *testing.T) {
	_, err := FromGo(struct{ X int }{1})
	assert.Error(t, err)
}

func TestFromGo_CopiesExistingValues(t *testing.T) {
	original := Object{"k": String("v")}
	got, err := FromGo(original)
	require.NoError(t, err)

	got.(Object)["k"] = String("mutated")
	assert.Equal(t, String("v"), original["k"])
}

func TestUnmarshalValue_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{"string", `"x"`, String("x")},
		{"true", `true`, Bool(true)},
		{"false", `false`, Bool(false)},
		{"null", `null`, Null{}},
		{"int", `9`, Int(9)},
		{"float", `9.5`, Float(9.5)},
		{"array", `[1,"a"]`, Array{Int(1), String("a")}},
		{"object", `{"n":1}`, Object{"n": Int(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalValue([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalValue_Empty(t *testing.T) {
	_, err := UnmarshalValue(nil)
	assert.Error(t, err)
}

func TestValue_JSONRoundTrip(t *testing.T) {
	original := Object{
		"name":   String("laptop stand"),
		"price":  Float(34.99),
		"stock":  Int(12),
		"active": Bool(true),
		"notes":  Null{},
		"dims":   Array{Int(30), Int(22), Int(5)},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Object
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestCloneValue_DeepCopies(t *testing.T) {
	original := Object{
		"list": Array{Object{"k": String("v")}},
	}

	clone := CloneValue(original).(Object)
	clone["list"].(Array)[0].(Object)["k"] = String("mutated")

	assert.Equal(t, String("v"), original["list"].(Array)[0].(Object)["k"])
}

func TestCloneValue_Nil(t *testing.T) {
	assert.Nil(t, CloneValue(nil))
}

func TestObjectClone_Nil(t *testing.T) {
	var obj Object
	assert.Nil(t, obj.Clone())
}
