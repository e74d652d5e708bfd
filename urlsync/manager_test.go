package urlsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridtools/urlfilters/compression"
	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/grid"
	"github.com/gridtools/urlfilters/types"
)

func newManager(t *testing.T, opts config.Options) (*Manager, *grid.FakeGrid) {
	t.Helper()
	g := grid.NewFakeGrid()
	m, err := New(g, opts)
	require.NoError(t, err)
	return m, g
}

func TestNewRequiresGrid(t *testing.T) {
	_, err := New(nil, config.Options{})
	assert.ErrorIs(t, err, config.ErrNilGrid)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(grid.NewFakeGrid(), config.Options{Mode: "both"})
	assert.Error(t, err)
}

func TestGridToURLSingleFilter(t *testing.T) {
	m, g := newManager(t, config.Options{})
	g.Model = map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: "john"},
	}

	got, err := m.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/?f_name_contains=john", got)
}

func TestGridToURLEmptyState(t *testing.T) {
	m, _ := newManager(t, config.Options{})

	got, err := m.GridToURL("https://x.com/list?page=2")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/list?page=2", got)
}

func TestRoundTripIndividual(t *testing.T) {
	m1, g1 := newManager(t, config.Options{})
	g1.Model = map[string]grid.NativeFilter{
		"name":    {FilterType: "text", Type: "contains", Filter: "john"},
		"price":   {FilterType: "number", Type: "inRange", Filter: 100.0, FilterTo: 500.0},
		"created": {FilterType: "date", Type: "lessThan", DateFrom: "2024-01-01"},
		"status":  {FilterType: "set", Values: []string{"open", "closed"}},
	}

	rawURL, err := m1.GridToURL("https://x.com/grid")
	require.NoError(t, err)

	m2, g2 := newManager(t, config.Options{})
	require.NoError(t, m2.URLToGrid(rawURL))
	assert.Equal(t, g1.Model, g2.Model)
}

func TestRoundTripGroupedJSON(t *testing.T) {
	m1, g1 := newManager(t, config.Options{
		Mode:          config.ModeGrouped,
		GroupedFormat: config.FormatJSON,
	})
	g1.Model = map[string]grid.NativeFilter{
		"name":  {FilterType: "text", Type: "contains", Filter: "john"},
		"price": {FilterType: "number", Type: "greaterThan", Filter: 10.0},
	}

	rawURL, err := m1.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Contains(t, rawURL, "grid_filters=")
	assert.NotContains(t, rawURL, "f_name_contains")

	// The receiving side auto-detects the grouped encoding; it does not
	// need the producer's mode or format.
	m2, g2 := newManager(t, config.Options{})
	require.NoError(t, m2.URLToGrid(rawURL))
	assert.Equal(t, g1.Model, g2.Model)
}

func TestRoundTripGroupedBase64(t *testing.T) {
	m1, g1 := newManager(t, config.Options{
		Mode:          config.ModeGrouped,
		GroupedFormat: config.FormatBase64,
	})
	g1.Model = map[string]grid.NativeFilter{
		"status": {FilterType: "set", Values: []string{"a", "b"}},
	}

	rawURL, err := m1.GridToURL("https://x.com")
	require.NoError(t, err)

	m2, g2 := newManager(t, config.Options{})
	require.NoError(t, m2.URLToGrid(rawURL))
	assert.Equal(t, g1.Model, g2.Model)
}

func TestRoundTripCompressed(t *testing.T) {
	m1, g1 := newManager(t, config.Options{
		Compression: &compression.Options{
			Strategy:   compression.StrategyAlways,
			Algorithms: []string{compression.MethodBase64},
		},
	})
	g1.Model = map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: "john"},
	}

	rawURL, err := m1.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Contains(t, rawURL, "f_compressed=")
	assert.Contains(t, rawURL, "f_method=base64")
	assert.NotContains(t, rawURL, "f_name_contains")

	m2, g2 := newManager(t, config.Options{})
	require.NoError(t, m2.URLToGrid(rawURL))
	assert.Equal(t, g1.Model, g2.Model)
}

func TestCompressionAutoBelowThresholdStaysPlain(t *testing.T) {
	m, g := newManager(t, config.Options{
		Compression: &compression.Options{
			Strategy:  compression.StrategyAuto,
			Threshold: 1000,
		},
	})
	g.Model = map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: "john"},
	}

	rawURL, err := m.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/?f_name_contains=john", rawURL)
}

func TestCompressionAutoAboveThreshold(t *testing.T) {
	m1, g1 := newManager(t, config.Options{
		Compression: &compression.Options{
			Strategy:  compression.StrategyAuto,
			Threshold: 100,
		},
	})
	model := map[string]grid.NativeFilter{}
	for _, col := range []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"} {
		model[col] = grid.NativeFilter{
			FilterType: "text", Type: "contains", Filter: strings.Repeat(col, 10),
		}
	}
	g1.Model = model

	rawURL, err := m1.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Contains(t, rawURL, "f_compressed=")

	m2, g2 := newManager(t, config.Options{})
	require.NoError(t, m2.URLToGrid(rawURL))
	assert.Equal(t, model, g2.Model)
}

func TestCorruptCompressedPayloadFallsBack(t *testing.T) {
	var compressionErrs int
	m, g := newManager(t, config.Options{
		Callbacks: config.Callbacks{
			OnCompressionError: func(err error) { compressionErrs++ },
		},
	})

	err := m.URLToGrid("https://x.com/?f_compressed=garbage&f_method=zstd&f_name_contains=a")
	require.NoError(t, err)
	assert.Equal(t, 1, compressionErrs)
	assert.Equal(t, map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: "a"},
	}, g.Model)
}

func TestUnrecognizedGroupedPayload(t *testing.T) {
	var reported []string
	m, g := newManager(t, config.Options{
		Callbacks: config.Callbacks{
			OnParseError: func(param string, err error) {
				reported = append(reported, param)
			},
		},
	})

	require.NoError(t, m.URLToGrid("https://x.com/?grid_filters=hello"))
	assert.Equal(t, []string{"grid_filters"}, reported)
	assert.Empty(t, g.Model)
}

func TestPreservedParamsSurviveRoundTrip(t *testing.T) {
	m, _ := newManager(t, config.Options{})

	require.NoError(t, m.URLToGrid("https://x.com/?page=3&sort=asc&f_name_contains=a"))

	got, err := m.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/?f_name_contains=a&page=3&sort=asc", got)
}

func TestDecodeURLDoesNotTouchGrid(t *testing.T) {
	m, g := newManager(t, config.Options{})

	state, err := m.DecodeURL("https://x.com/?f_name_eq=a")
	require.NoError(t, err)
	assert.True(t, types.FilterState{
		"name": types.TextFilter{Op: "equals", Value: "a"},
	}.Equal(state))
	assert.Empty(t, g.Model)
}

func TestTypeDetectionFromGridColumns(t *testing.T) {
	m, g := newManager(t, config.Options{})
	g.Columns["price"] = grid.Column{ID: "price", FilterKind: "agNumberColumnFilter"}

	// "eq" alone would parse as text; the grid column hint makes it a
	// number filter.
	state, err := m.DecodeURL("https://x.com/?f_price_eq=10")
	require.NoError(t, err)
	assert.True(t, types.FilterState{
		"price": types.NumberFilter{Op: "equals", Value: 10},
	}.Equal(state), "got %#v", state)
}

func TestUpdateOptions(t *testing.T) {
	m, g := newManager(t, config.Options{})
	g.Model = map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: "a"},
	}

	require.NoError(t, m.UpdateOptions(config.Options{Prefix: "flt_"}))

	got, err := m.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/?flt_name_contains=a", got)

	assert.Error(t, m.UpdateOptions(config.Options{Mode: "both"}))
	// A rejected update leaves the previous configuration in place.
	assert.Equal(t, "flt_", m.Config().Prefix)
}

func TestIntrospection(t *testing.T) {
	m, g := newManager(t, config.Options{})
	assert.Equal(t, 0, m.FilterCount())
	assert.False(t, m.CompressionActive())

	g.Model = map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: "a"},
		"x":    {FilterType: "number", Type: "equals", Filter: 1.0},
	}
	assert.Equal(t, 2, m.FilterCount())

	n, err := m.URLLength("https://x.com")
	require.NoError(t, err)
	got, err := m.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.Equal(t, len(got), n)

	require.NoError(t, m.UpdateOptions(config.Options{
		Compression: &compression.Options{Strategy: compression.StrategyAlways},
	}))
	assert.True(t, m.CompressionActive())
}

func TestURLLengthCallback(t *testing.T) {
	var overflowed bool
	m, g := newManager(t, config.Options{
		MaxURLLength: 30,
		Callbacks: config.Callbacks{
			OnURLLengthExceeded: func(length, max int) {
				overflowed = true
				assert.Equal(t, 30, max)
				assert.Greater(t, length, max)
			},
		},
	})
	g.Model = map[string]grid.NativeFilter{
		"name": {FilterType: "text", Type: "contains", Filter: strings.Repeat("a", 50)},
	}

	got, err := m.GridToURL("https://x.com")
	require.NoError(t, err)
	assert.True(t, overflowed)
	// The URL is still produced; the overflow is advisory.
	assert.Contains(t, got, "f_name_contains=")
}

func TestColumnCacheInvalidation(t *testing.T) {
	m, g := newManager(t, config.Options{})
	g.Columns["price"] = grid.Column{ID: "price", FilterKind: "agNumberColumnFilter"}

	state, err := m.DecodeURL("https://x.com/?f_price_eq=10")
	require.NoError(t, err)
	assert.Equal(t, types.FilterTypeNumber, state["price"].FilterType())

	// The column turned into text; without invalidation the stale
	// cached type would still win.
	g.Columns["price"] = grid.Column{ID: "price", FilterKind: "agTextColumnFilter"}
	m.InvalidateColumn("price")

	state, err = m.DecodeURL("https://x.com/?f_price_eq=10")
	require.NoError(t, err)
	assert.Equal(t, types.FilterTypeText, state["price"].FilterType())

	m.ColumnsChanged()
	m.Close()
}
