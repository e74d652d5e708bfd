// filter defines the filter grammar: the per-type operation tables and
// the codec between one URL parameter and one typed column filter.
package filter

import "github.com/gridtools/urlfilters/types"

// OpEntry is one row of the three-way operation mapping:
// URL token <-> internal operation name <-> grid-native operation name.
// The tables are static and mutually inverse; encoding then decoding an
// operation yields the original URL token.
type OpEntry struct {
	Token    string
	Internal string
	Native   string
}

var textOps = []OpEntry{
	{"contains", "contains", "contains"},
	{"ncontains", "notContains", "notContains"},
	{"eq", "equals", "equals"},
	{"neq", "notEqual", "notEqual"},
	{"sw", "startsWith", "startsWith"},
	{"ew", "endsWith", "endsWith"},
	{"blank", "blank", "blank"},
	{"nblank", "notBlank", "notBlank"},
}

var numberOps = []OpEntry{
	{"eq", "equals", "equals"},
	{"neq", "notEqual", "notEqual"},
	{"gt", "greaterThan", "greaterThan"},
	{"gte", "greaterThanOrEqual", "greaterThanOrEqual"},
	{"lt", "lessThan", "lessThan"},
	{"lte", "lessThanOrEqual", "lessThanOrEqual"},
	{"range", "inRange", "inRange"},
	{"blank", "blank", "blank"},
	{"nblank", "notBlank", "notBlank"},
}

var dateOps = []OpEntry{
	{"dateeq", "dateEquals", "equals"},
	{"dateneq", "dateNotEqual", "notEqual"},
	{"before", "dateBefore", "lessThan"},
	{"after", "dateAfter", "greaterThan"},
	{"daterange", "dateRange", "inRange"},
	{"dateblank", "dateBlank", "blank"},
	{"datenblank", "dateNotBlank", "notBlank"},
}

var setOps = []OpEntry{
	{"in", "in", "in"},
}

var opsByType = map[types.FilterType][]OpEntry{
	types.FilterTypeText:   textOps,
	types.FilterTypeNumber: numberOps,
	types.FilterTypeDate:   dateOps,
	types.FilterTypeSet:    setOps,
}

var (
	byToken    = map[types.FilterType]map[string]OpEntry{}
	byInternal = map[types.FilterType]map[string]OpEntry{}
	byNative   = map[types.FilterType]map[string]OpEntry{}

	// numberOnlyTokens are tokens that unambiguously imply a number
	// filter; the shared eq/neq/blank/nblank tokens default to text.
	numberOnlyTokens = map[string]bool{}
)

func init() {
	for ft, ops := range opsByType {
		byToken[ft] = make(map[string]OpEntry, len(ops))
		byInternal[ft] = make(map[string]OpEntry, len(ops))
		byNative[ft] = make(map[string]OpEntry, len(ops))
		for _, op := range ops {
			byToken[ft][op.Token] = op
			byInternal[ft][op.Internal] = op
			byNative[ft][op.Native] = op
		}
	}
	for _, op := range numberOps {
		if _, shared := byToken[types.FilterTypeText][op.Token]; !shared {
			numberOnlyTokens[op.Token] = true
		}
	}
}

// Operations returns the operation table of a filter type.
func Operations(ft types.FilterType) []OpEntry {
	return opsByType[ft]
}

// EntryForToken resolves a URL operation token within one type table.
func EntryForToken(ft types.FilterType, token string) (OpEntry, bool) {
	e, ok := byToken[ft][token]
	return e, ok
}

// EntryForInternal resolves an internal operation name within one type
// table.
func EntryForInternal(ft types.FilterType, internal string) (OpEntry, bool) {
	e, ok := byInternal[ft][internal]
	return e, ok
}

// EntryForNative resolves a grid-native operation name within one type
// table.
func EntryForNative(ft types.FilterType, native string) (OpEntry, bool) {
	e, ok := byNative[ft][native]
	return e, ok
}

// InferTypeFromToken infers the filter type an operation token implies
// when no column hint overrides it. Date tokens are unique; the tokens
// shared between text and number resolve to text.
func InferTypeFromToken(token string) (types.FilterType, bool) {
	if _, ok := byToken[types.FilterTypeDate][token]; ok {
		return types.FilterTypeDate, true
	}
	if numberOnlyTokens[token] {
		return types.FilterTypeNumber, true
	}
	if _, ok := byToken[types.FilterTypeText][token]; ok {
		return types.FilterTypeText, true
	}
	if _, ok := byToken[types.FilterTypeSet][token]; ok {
		return types.FilterTypeSet, true
	}
	return "", false
}

// IsBlankOp reports whether an internal operation carries no value.
func IsBlankOp(internal string) bool {
	switch internal {
	case "blank", "notBlank", "dateBlank", "dateNotBlank":
		return true
	}
	return false
}

// IsRangeOp reports whether an internal operation carries two values.
func IsRangeOp(internal string) bool {
	return internal == "inRange" || internal == "dateRange"
}
