package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterStateJSONRoundTrip(t *testing.T) {
	to := 500.0
	state := FilterState{
		"name":    TextFilter{Op: "contains", Value: "john"},
		"price":   NumberFilter{Op: "inRange", Value: 100, ValueTo: &to},
		"created": DateFilter{Op: "dateBefore", Value: "2024-01-01"},
		"status":  SetFilter{Values: []string{"open", "closed"}},
	}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded FilterState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, state.Equal(decoded), "got %#v", decoded)
}

func TestMarshalShape(t *testing.T) {
	data, err := json.Marshal(FilterState{
		"name": TextFilter{Op: "contains", Value: "john"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":{"filterType":"text","type":"contains","filter":"john"}}`, string(data))
}

func TestUnmarshalColumnFilter(t *testing.T) {
	tests := []struct {
		name string
		json string
		want ColumnFilter
	}{
		{
			"text",
			`{"filterType":"text","type":"equals","filter":"x"}`,
			TextFilter{Op: "equals", Value: "x"},
		},
		{
			"number without filterTo",
			`{"filterType":"number","type":"greaterThan","filter":5}`,
			NumberFilter{Op: "greaterThan", Value: 5},
		},
		{
			"number null filter",
			`{"filterType":"number","type":"blank","filter":null}`,
			NumberFilter{Op: "blank", Value: 0},
		},
		{
			"date range",
			`{"filterType":"date","type":"dateRange","filter":"2024-01-01","filterTo":"2024-12-31"}`,
			DateFilter{Op: "dateRange", Value: "2024-01-01", ValueTo: "2024-12-31"},
		},
		{
			"set",
			`{"filterType":"set","values":["a","b"]}`,
			SetFilter{Values: []string{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := UnmarshalColumnFilter([]byte(tt.json))
			require.NoError(t, err)
			assert.True(t, FiltersEqual(tt.want, f), "got %#v", f)
		})
	}
}

func TestUnmarshalColumnFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing filterType", `{"type":"contains","filter":"x"}`},
		{"unknown filterType", `{"filterType":"boolean","type":"equals"}`},
		{"not an object", `"contains"`},
		{"wrong value kind", `{"filterType":"number","type":"equals","filter":"abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalColumnFilter([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestFilterStateUnmarshalNamesColumn(t *testing.T) {
	var fs FilterState
	err := json.Unmarshal([]byte(`{"price":{"type":"equals"}}`), &fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"price"`)
}

func TestFiltersEqual(t *testing.T) {
	to1, to2 := 10.0, 20.0

	assert.True(t, FiltersEqual(
		NumberFilter{Op: "inRange", Value: 1, ValueTo: &to1},
		NumberFilter{Op: "inRange", Value: 1, ValueTo: &to1},
	))
	assert.False(t, FiltersEqual(
		NumberFilter{Op: "inRange", Value: 1, ValueTo: &to1},
		NumberFilter{Op: "inRange", Value: 1, ValueTo: &to2},
	))
	assert.False(t, FiltersEqual(
		TextFilter{Op: "equals", Value: "1"},
		NumberFilter{Op: "equals", Value: 1},
	))
	assert.True(t, FiltersEqual(
		SetFilter{Values: []string{"a", "b"}},
		SetFilter{Values: []string{"a", "b"}},
	))
	assert.False(t, FiltersEqual(
		SetFilter{Values: []string{"a", "b"}},
		SetFilter{Values: []string{"b", "a"}},
	))
}

func TestClone(t *testing.T) {
	orig := FilterState{"name": TextFilter{Op: "contains", Value: "a"}}
	clone := orig.Clone()
	clone["other"] = TextFilter{Op: "equals", Value: "b"}

	assert.Len(t, orig, 1)
	assert.Len(t, clone, 2)
}
