package filter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/types"
)

// TypeResolver supplies a filter type hint for a column, typically
// backed by explicit configuration overrides and the grid's column
// definitions. A false return means no hint is available and the
// operation token decides.
type TypeResolver func(column string) (types.FilterType, bool)

// Codec converts between one URL parameter and one typed column filter.
type Codec struct {
	cfg     config.Config
	resolve TypeResolver
}

// NewCodec builds a parameter codec. The resolver may be nil, in which
// case only the configured column type overrides act as hints.
func NewCodec(cfg config.Config, resolver TypeResolver) Codec {
	if resolver == nil {
		resolver = func(column string) (types.FilterType, bool) {
			return cfg.ColumnType(column)
		}
	}
	return Codec{cfg: cfg, resolve: resolver}
}

// rangeSeparator joins the two components of a range value. The query
// encoding layer escapes it as %2C on the wire.
const rangeSeparator = ","

// ParseParam parses a single URL parameter into a column identifier
// and its typed filter. The parameter name has the shape
// <prefix><column>_<opToken>; the last underscore is the boundary, so
// column names may themselves contain underscores.
func (c Codec) ParseParam(name, raw string) (string, types.ColumnFilter, error) {
	if !strings.HasPrefix(name, c.cfg.Prefix) {
		return "", nil, invalidf(name, "parameter does not start with prefix %q", c.cfg.Prefix)
	}

	rest := name[len(c.cfg.Prefix):]
	sep := strings.LastIndex(rest, "_")
	if sep < 0 {
		return "", nil, invalidf(name, "missing operation separator")
	}

	column := c.cfg.Naming().ToColumn(rest[:sep])
	token := rest[sep+1:]
	if column == "" {
		return "", nil, invalidf(name, "empty column name")
	}

	ft, entry, err := c.resolveOperation(name, column, token)
	if err != nil {
		return "", nil, err
	}

	f, err := c.parseValue(name, ft, entry, raw)
	if err != nil {
		return "", nil, err
	}
	return column, f, nil
}

// resolveOperation determines the filter type and operation entry for a
// token. A column type hint wins when its table knows the token;
// otherwise the token itself decides.
func (c Codec) resolveOperation(param, column, token string) (types.FilterType, OpEntry, error) {
	if token == "" {
		return "", OpEntry{}, invalidf(param, "empty operation token")
	}

	if hint, ok := c.resolve(column); ok {
		if entry, ok := EntryForToken(hint, token); ok {
			return hint, entry, nil
		}
	}

	ft, ok := InferTypeFromToken(token)
	if !ok {
		return "", OpEntry{}, invalidf(param, "unsupported operation token %q", token)
	}
	entry, _ := EntryForToken(ft, token)
	return ft, entry, nil
}

func (c Codec) parseValue(param string, ft types.FilterType, entry OpEntry, raw string) (types.ColumnFilter, error) {
	// Blank operations always carry an empty value; the raw value is
	// ignored and the length limit does not apply.
	if IsBlankOp(entry.Internal) {
		switch ft {
		case types.FilterTypeNumber:
			return types.NumberFilter{Op: entry.Internal, Value: 0}, nil
		case types.FilterTypeDate:
			return types.DateFilter{Op: entry.Internal}, nil
		default:
			return types.TextFilter{Op: entry.Internal}, nil
		}
	}

	if len(raw) > c.cfg.MaxValueLength {
		return nil, invalidf(param, "value length %d exceeds maximum %d", len(raw), c.cfg.MaxValueLength)
	}

	switch ft {
	case types.FilterTypeText:
		return types.TextFilter{Op: entry.Internal, Value: raw}, nil

	case types.FilterTypeNumber:
		if IsRangeOp(entry.Internal) {
			lo, hi, err := c.parseNumberRange(param, raw)
			if err != nil {
				return nil, err
			}
			return types.NumberFilter{Op: entry.Internal, Value: lo, ValueTo: &hi}, nil
		}
		v, err := parseNumber(param, raw)
		if err != nil {
			return nil, err
		}
		return types.NumberFilter{Op: entry.Internal, Value: v}, nil

	case types.FilterTypeDate:
		if IsRangeOp(entry.Internal) {
			from, to, err := c.parseDateRange(param, raw)
			if err != nil {
				return nil, err
			}
			return types.DateFilter{Op: entry.Internal, Value: from, ValueTo: to}, nil
		}
		v, err := parseDate(param, raw)
		if err != nil {
			return nil, err
		}
		return types.DateFilter{Op: entry.Internal, Value: v}, nil

	case types.FilterTypeSet:
		if raw == "" {
			return nil, invalidf(param, "set filter requires at least one value")
		}
		values := strings.Split(raw, rangeSeparator)
		if len(values) > c.cfg.MaxSetValues {
			return nil, invalidf(param, "set filter has %d values, maximum is %d", len(values), c.cfg.MaxSetValues)
		}
		return types.SetFilter{Values: values}, nil
	}

	return nil, invalidf(param, "unknown filter type %q", ft)
}

func (c Codec) parseNumberRange(param, raw string) (float64, float64, error) {
	parts := strings.Split(raw, rangeSeparator)
	if len(parts) != 2 {
		return 0, 0, invalidf(param, "range filter requires exactly two values separated by a comma, got %d", len(parts))
	}
	lo, err := parseNumber(param, parts[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err := parseNumber(param, parts[1])
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, invalidf(param, "Invalid number range: %v > %v", lo, hi)
	}
	return lo, hi, nil
}

func (c Codec) parseDateRange(param, raw string) (string, string, error) {
	parts := strings.Split(raw, rangeSeparator)
	if len(parts) != 2 {
		return "", "", invalidf(param, "range filter requires exactly two values separated by a comma, got %d", len(parts))
	}
	from, err := parseDate(param, parts[0])
	if err != nil {
		return "", "", err
	}
	to, err := parseDate(param, parts[1])
	if err != nil {
		return "", "", err
	}
	fromT, _ := time.Parse(types.DateLayout, from)
	toT, _ := time.Parse(types.DateLayout, to)
	if fromT.After(toT) {
		return "", "", invalidf(param, "Date range invalid: %s is after %s", from, to)
	}
	return from, to, nil
}

func parseNumber(param, raw string) (float64, error) {
	if raw == "" {
		return 0, invalidf(param, "number filter value is empty")
	}
	switch raw {
	case "Infinity", "-Infinity", "+Infinity":
		return 0, invalidf(param, "Infinity is not an accepted number value")
	case "NaN":
		return 0, invalidf(param, "NaN is not an accepted number value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalidf(param, "invalid number value %q", raw)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, invalidf(param, "number value %q is not finite", raw)
	}
	return v, nil
}

func parseDate(param, raw string) (string, error) {
	if raw == "" {
		return "", invalidf(param, "date filter value is empty")
	}
	if _, err := time.Parse(types.DateLayout, raw); err != nil {
		return "", invalidf(param, "invalid date value %q, expected YYYY-MM-DD", raw)
	}
	return raw, nil
}

// SerializeParam is the inverse of ParseParam: it renders a column
// filter as a URL parameter name and value. It fails fast on
// unsupported operations and oversized values since those are caller
// errors, not external input.
func (c Codec) SerializeParam(column string, f types.ColumnFilter) (string, string, error) {
	if column == "" {
		return "", "", invalidf("", "empty column name")
	}

	entry, ok := EntryForInternal(f.FilterType(), f.Operation())
	if !ok {
		return "", "", invalidf(column, "operation %q is not supported for %s filters", f.Operation(), f.FilterType())
	}

	name := c.cfg.Prefix + c.cfg.Naming().ToParam(column) + "_" + entry.Token

	value, err := c.serializeValue(name, f, entry)
	if err != nil {
		return "", "", err
	}
	if !IsBlankOp(entry.Internal) && len(value) > c.cfg.MaxValueLength {
		return "", "", invalidf(name, "value length %d exceeds maximum %d", len(value), c.cfg.MaxValueLength)
	}
	return name, value, nil
}

func (c Codec) serializeValue(param string, f types.ColumnFilter, entry OpEntry) (string, error) {
	if IsBlankOp(entry.Internal) {
		return "", nil
	}

	switch v := f.(type) {
	case types.TextFilter:
		return v.Value, nil

	case types.NumberFilter:
		if IsRangeOp(entry.Internal) {
			if v.ValueTo == nil {
				return "", invalidf(param, "range filter is missing its upper bound")
			}
			if v.Value > *v.ValueTo {
				return "", invalidf(param, "Invalid number range: %v > %v", v.Value, *v.ValueTo)
			}
			return formatNumber(v.Value) + rangeSeparator + formatNumber(*v.ValueTo), nil
		}
		return formatNumber(v.Value), nil

	case types.DateFilter:
		if IsRangeOp(entry.Internal) {
			if v.ValueTo == "" {
				return "", invalidf(param, "date range filter is missing its end date")
			}
			from, err := parseDate(param, v.Value)
			if err != nil {
				return "", err
			}
			to, err := parseDate(param, v.ValueTo)
			if err != nil {
				return "", err
			}
			fromT, _ := time.Parse(types.DateLayout, from)
			toT, _ := time.Parse(types.DateLayout, to)
			if fromT.After(toT) {
				return "", invalidf(param, "Date range invalid: %s is after %s", from, to)
			}
			return from + rangeSeparator + to, nil
		}
		return parseDate(param, v.Value)

	case types.SetFilter:
		if len(v.Values) == 0 {
			return "", invalidf(param, "set filter requires at least one value")
		}
		if len(v.Values) > c.cfg.MaxSetValues {
			return "", invalidf(param, "set filter has %d values, maximum is %d", len(v.Values), c.cfg.MaxSetValues)
		}
		return strings.Join(v.Values, rangeSeparator), nil
	}

	return "", invalidf(param, "unknown filter variant %T", f)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
