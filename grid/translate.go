package grid

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/filter"
	"github.com/gridtools/urlfilters/types"
)

// ReadFilterModel reads the grid's native filter model and translates
// it into the internal representation. Entries whose native operation
// has no mapping for their declared filter type are dropped, not
// defaulted, and the drop is reported through the parse-error callback.
func ReadFilterModel(g Grid, cfg config.Config) types.FilterState {
	model := g.GetFilterModel()
	state := make(types.FilterState, len(model))

	for column, nf := range model {
		f, err := translateNative(column, nf)
		if err != nil {
			cfg.ReportParseError(column, err)
			continue
		}
		state[column] = f
	}
	return state
}

func translateNative(column string, nf NativeFilter) (types.ColumnFilter, error) {
	ft := types.FilterType(nf.FilterType)

	switch ft {
	case types.FilterTypeSet:
		if len(nf.Values) == 0 {
			return nil, fmt.Errorf("set filter on %q has no values", column)
		}
		return types.SetFilter{Values: nf.Values}, nil

	case types.FilterTypeText:
		entry, ok := filter.EntryForNative(ft, nf.Type)
		if !ok {
			return nil, fmt.Errorf("operation %q is not supported for text filters", nf.Type)
		}
		if filter.IsBlankOp(entry.Internal) {
			return types.TextFilter{Op: entry.Internal}, nil
		}
		value, ok := nf.Filter.(string)
		if !ok && nf.Filter != nil {
			return nil, fmt.Errorf("text filter on %q has non-string value %v", column, nf.Filter)
		}
		return types.TextFilter{Op: entry.Internal, Value: value}, nil

	case types.FilterTypeNumber:
		entry, ok := filter.EntryForNative(ft, nf.Type)
		if !ok {
			return nil, fmt.Errorf("operation %q is not supported for number filters", nf.Type)
		}
		// nil under a blank operation is normalized to 0; anything
		// else failing coercion is dropped with an error.
		if filter.IsBlankOp(entry.Internal) {
			return types.NumberFilter{Op: entry.Internal, Value: 0}, nil
		}
		value, err := coerceNumber(nf.Filter)
		if err != nil {
			return nil, fmt.Errorf("number filter on %q: %w", column, err)
		}
		f := types.NumberFilter{Op: entry.Internal, Value: value}
		if filter.IsRangeOp(entry.Internal) {
			to, err := coerceNumber(nf.FilterTo)
			if err != nil {
				return nil, fmt.Errorf("number range filter on %q: %w", column, err)
			}
			if value > to {
				return nil, fmt.Errorf("number range filter on %q has reversed bounds", column)
			}
			f.ValueTo = &to
		}
		return f, nil

	case types.FilterTypeDate:
		entry, ok := filter.EntryForNative(ft, nf.Type)
		if !ok {
			return nil, fmt.Errorf("operation %q is not supported for date filters", nf.Type)
		}
		if filter.IsBlankOp(entry.Internal) {
			return types.DateFilter{Op: entry.Internal}, nil
		}
		from, err := coerceDate(nf.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("date filter on %q: %w", column, err)
		}
		f := types.DateFilter{Op: entry.Internal, Value: from}
		if filter.IsRangeOp(entry.Internal) {
			to, err := coerceDate(nf.DateTo)
			if err != nil {
				return nil, fmt.Errorf("date range filter on %q: %w", column, err)
			}
			fromT, _ := time.Parse(types.DateLayout, from)
			toT, _ := time.Parse(types.DateLayout, to)
			if fromT.After(toT) {
				return nil, fmt.Errorf("date range filter on %q has reversed bounds", column)
			}
			f.ValueTo = to
		}
		return f, nil
	}

	return nil, fmt.Errorf("unknown native filterType %q on %q", nf.FilterType, column)
}

// coerceNumber accepts the numeric shapes a loosely typed grid model
// produces: floats, integers, and numeric strings.
func coerceNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("value %v is not finite", n)
		}
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("value %q is not numeric", n)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("value is missing")
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

func coerceDate(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("date value is missing")
	}
	// The grid may append a midnight time component.
	if len(v) > len(types.DateLayout) {
		v = v[:len(types.DateLayout)]
	}
	if _, err := time.Parse(types.DateLayout, v); err != nil {
		return "", fmt.Errorf("invalid date value %q", v)
	}
	return v, nil
}

// ApplyFilterModel translates the internal filter state into the
// grid-native shape and applies it in a single SetFilterModel call so
// the grid observes one atomic update.
func ApplyFilterModel(g Grid, fs types.FilterState, cfg config.Config) {
	model := make(map[string]NativeFilter, len(fs))
	for column, f := range fs {
		nf, err := translateInternal(f)
		if err != nil {
			cfg.ReportParseError(column, err)
			continue
		}
		model[column] = nf
	}
	g.SetFilterModel(model)
}

func translateInternal(f types.ColumnFilter) (NativeFilter, error) {
	switch v := f.(type) {
	case types.SetFilter:
		return NativeFilter{FilterType: string(types.FilterTypeSet), Values: v.Values}, nil

	case types.TextFilter:
		entry, ok := filter.EntryForInternal(types.FilterTypeText, v.Op)
		if !ok {
			return NativeFilter{}, fmt.Errorf("operation %q is not supported for text filters", v.Op)
		}
		nf := NativeFilter{FilterType: string(types.FilterTypeText), Type: entry.Native}
		if !filter.IsBlankOp(entry.Internal) {
			nf.Filter = v.Value
		}
		return nf, nil

	case types.NumberFilter:
		entry, ok := filter.EntryForInternal(types.FilterTypeNumber, v.Op)
		if !ok {
			return NativeFilter{}, fmt.Errorf("operation %q is not supported for number filters", v.Op)
		}
		nf := NativeFilter{FilterType: string(types.FilterTypeNumber), Type: entry.Native}
		if !filter.IsBlankOp(entry.Internal) {
			nf.Filter = v.Value
			if filter.IsRangeOp(entry.Internal) && v.ValueTo != nil {
				nf.FilterTo = *v.ValueTo
			}
		}
		return nf, nil

	case types.DateFilter:
		entry, ok := filter.EntryForInternal(types.FilterTypeDate, v.Op)
		if !ok {
			return NativeFilter{}, fmt.Errorf("operation %q is not supported for date filters", v.Op)
		}
		nf := NativeFilter{FilterType: string(types.FilterTypeDate), Type: entry.Native}
		if !filter.IsBlankOp(entry.Internal) {
			nf.DateFrom = v.Value
			if filter.IsRangeOp(entry.Internal) {
				nf.DateTo = v.ValueTo
			}
		}
		return nf, nil
	}

	return NativeFilter{}, fmt.Errorf("unknown filter variant %T", f)
}
