// types package contains the filter data model
// that is shared between the codec, grid and serialization layers.
package types

import (
	"encoding/json"
	"fmt"
)

// FilterType identifies which variant of the filter union a value carries.
type FilterType string

const (
	FilterTypeText   FilterType = "text"
	FilterTypeNumber FilterType = "number"
	FilterTypeDate   FilterType = "date"
	FilterTypeSet    FilterType = "set"
)

// DateLayout is the wire format for date filter values.
const DateLayout = "2006-01-02"

// ColumnFilter is one active filter on a single grid column.
// The concrete type determines how the value fields are interpreted.
type ColumnFilter interface {
	FilterType() FilterType
	Operation() string
}

// TextFilter matches string cell values.
type TextFilter struct {
	Op    string
	Value string
}

func (f TextFilter) FilterType() FilterType { return FilterTypeText }
func (f TextFilter) Operation() string      { return f.Op }

// NumberFilter matches numeric cell values. ValueTo is set only for
// the inRange operation.
type NumberFilter struct {
	Op      string
	Value   float64
	ValueTo *float64
}

func (f NumberFilter) FilterType() FilterType { return FilterTypeNumber }
func (f NumberFilter) Operation() string      { return f.Op }

// DateFilter matches date cell values encoded as ISO dates. ValueTo is
// set only for the dateRange operation.
type DateFilter struct {
	Op      string
	Value   string
	ValueTo string
}

func (f DateFilter) FilterType() FilterType { return FilterTypeDate }
func (f DateFilter) Operation() string      { return f.Op }

// SetFilter matches any of an enumerated list of values.
type SetFilter struct {
	Values []string
}

func (f SetFilter) FilterType() FilterType { return FilterTypeSet }
func (f SetFilter) Operation() string      { return "in" }

// FilterState maps a column identifier to its single active filter.
// A FilterState is built fresh on every conversion and never mutated
// in place.
type FilterState map[string]ColumnFilter

// Clone returns a shallow copy. Filter values are immutable so a
// shallow copy is sufficient.
func (fs FilterState) Clone() FilterState {
	out := make(FilterState, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the filter in the flat grid shape, keyed on
// filterType.
func (f TextFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FilterType FilterType `json:"filterType"`
		Type       string     `json:"type"`
		Filter     string     `json:"filter"`
	}{FilterTypeText, f.Op, f.Value})
}

func (f NumberFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FilterType FilterType `json:"filterType"`
		Type       string     `json:"type"`
		Filter     float64    `json:"filter"`
		FilterTo   *float64   `json:"filterTo,omitempty"`
	}{FilterTypeNumber, f.Op, f.Value, f.ValueTo})
}

func (f DateFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FilterType FilterType `json:"filterType"`
		Type       string     `json:"type"`
		Filter     string     `json:"filter"`
		FilterTo   string     `json:"filterTo,omitempty"`
	}{FilterTypeDate, f.Op, f.Value, f.ValueTo})
}

func (f SetFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FilterType FilterType `json:"filterType"`
		Type       string     `json:"type"`
		Values     []string   `json:"values"`
	}{FilterTypeSet, "in", f.Values})
}

// UnmarshalJSON decodes a full filter state using two-phase decoding:
// the outer object is read as raw entries first, then each entry is
// decoded into its concrete variant based on the filterType tag.
// Entries without a filterType are rejected.
func (fs *FilterState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FilterState, len(raw))
	for column, entry := range raw {
		f, err := UnmarshalColumnFilter(entry)
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		out[column] = f
	}
	*fs = out
	return nil
}

// UnmarshalColumnFilter decodes a single filter entry into its concrete
// variant based on the filterType tag.
func UnmarshalColumnFilter(data []byte) (ColumnFilter, error) {
	var probe struct {
		FilterType FilterType      `json:"filterType"`
		Type       string          `json:"type"`
		Filter     json.RawMessage `json:"filter"`
		FilterTo   json.RawMessage `json:"filterTo"`
		Values     []string        `json:"values"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid filter entry: %w", err)
	}
	if probe.FilterType == "" {
		return nil, fmt.Errorf("filter entry is missing filterType")
	}

	switch probe.FilterType {
	case FilterTypeText:
		var value string
		if len(probe.Filter) > 0 && string(probe.Filter) != "null" {
			if err := json.Unmarshal(probe.Filter, &value); err != nil {
				return nil, fmt.Errorf("invalid text filter value: %w", err)
			}
		}
		return TextFilter{Op: probe.Type, Value: value}, nil

	case FilterTypeNumber:
		var value float64
		if len(probe.Filter) > 0 && string(probe.Filter) != "null" {
			if err := json.Unmarshal(probe.Filter, &value); err != nil {
				return nil, fmt.Errorf("invalid number filter value: %w", err)
			}
		}
		f := NumberFilter{Op: probe.Type, Value: value}
		if len(probe.FilterTo) > 0 && string(probe.FilterTo) != "null" {
			var to float64
			if err := json.Unmarshal(probe.FilterTo, &to); err != nil {
				return nil, fmt.Errorf("invalid number filterTo value: %w", err)
			}
			f.ValueTo = &to
		}
		return f, nil

	case FilterTypeDate:
		var value string
		if len(probe.Filter) > 0 && string(probe.Filter) != "null" {
			if err := json.Unmarshal(probe.Filter, &value); err != nil {
				return nil, fmt.Errorf("invalid date filter value: %w", err)
			}
		}
		f := DateFilter{Op: probe.Type, Value: value}
		if len(probe.FilterTo) > 0 && string(probe.FilterTo) != "null" {
			var to string
			if err := json.Unmarshal(probe.FilterTo, &to); err != nil {
				return nil, fmt.Errorf("invalid date filterTo value: %w", err)
			}
			f.ValueTo = to
		}
		return f, nil

	case FilterTypeSet:
		return SetFilter{Values: probe.Values}, nil

	default:
		return nil, fmt.Errorf("unknown filterType %q", probe.FilterType)
	}
}

// Equal reports whether two filter states hold the same filters.
func (fs FilterState) Equal(other FilterState) bool {
	if len(fs) != len(other) {
		return false
	}
	for column, f := range fs {
		g, ok := other[column]
		if !ok || !FiltersEqual(f, g) {
			return false
		}
	}
	return true
}

// FiltersEqual compares two column filters for semantic equality.
func FiltersEqual(a, b ColumnFilter) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.FilterType() != b.FilterType() {
		return false
	}
	switch af := a.(type) {
	case TextFilter:
		bf, ok := b.(TextFilter)
		return ok && af == bf
	case NumberFilter:
		bf, ok := b.(NumberFilter)
		if !ok || af.Op != bf.Op || af.Value != bf.Value {
			return false
		}
		if (af.ValueTo == nil) != (bf.ValueTo == nil) {
			return false
		}
		return af.ValueTo == nil || *af.ValueTo == *bf.ValueTo
	case DateFilter:
		bf, ok := b.(DateFilter)
		return ok && af == bf
	case SetFilter:
		bf, ok := b.(SetFilter)
		if !ok || len(af.Values) != len(bf.Values) {
			return false
		}
		for i := range af.Values {
			if af.Values[i] != bf.Values[i] {
				return false
			}
		}
		return true
	}
	return false
}
