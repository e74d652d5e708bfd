package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridtools/urlfilters/compression"
	"github.com/gridtools/urlfilters/types"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(Options{})
	require.NoError(t, err)

	assert.Equal(t, "f_", cfg.Prefix)
	assert.Equal(t, "grid_filters", cfg.GroupedParam)
	assert.Equal(t, ModeIndividual, cfg.Mode)
	assert.Equal(t, FormatQueryString, cfg.GroupedFormat)
	assert.Equal(t, DetectionSmart, cfg.TypeDetection)
	assert.Equal(t, NamingAsIs, cfg.ColumnNaming)
	assert.Equal(t, 200, cfg.MaxValueLength)
	assert.Equal(t, 2000, cfg.MaxURLLength)
	assert.Equal(t, 100, cfg.MaxSetValues)
	assert.Equal(t, compression.StrategyNever, cfg.Compression.Strategy)
	assert.NotNil(t, cfg.Logger)
}

func TestNewOverrides(t *testing.T) {
	cfg, err := New(Options{
		Prefix:         "flt.",
		Mode:           ModeGrouped,
		GroupedFormat:  FormatBase64,
		MaxValueLength: 50,
		Compression:    &compression.Options{Threshold: 500},
	})
	require.NoError(t, err)

	assert.Equal(t, "flt.", cfg.Prefix)
	assert.Equal(t, ModeGrouped, cfg.Mode)
	assert.Equal(t, FormatBase64, cfg.GroupedFormat)
	assert.Equal(t, 50, cfg.MaxValueLength)
	// Providing compression options without a strategy turns it on.
	assert.Equal(t, compression.StrategyAuto, cfg.Compression.Strategy)
	assert.Equal(t, 500, cfg.Compression.Threshold)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad mode", Options{Mode: "both"}},
		{"bad format", Options{GroupedFormat: "xml"}},
		{"bad detection", Options{TypeDetection: "psychic"}},
		{"bad naming", Options{ColumnNaming: "kebab"}},
		{"negative value length", Options{MaxValueLength: -1}},
		{"prefix with equals", Options{Prefix: "f="}},
		{"prefix with ampersand", Options{Prefix: "f&"}},
		{"grouped param with hash", Options{GroupedParam: "state#"}},
		{"bad compression strategy", Options{Compression: &compression.Options{Strategy: "sometimes"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestValidationCallback(t *testing.T) {
	var seen []error
	_, err := New(Options{
		Mode: "both",
		Callbacks: Callbacks{
			OnValidationError: func(err error) { seen = append(seen, err) },
		},
	})
	require.Error(t, err)
	// The callback observes the failure; the call still fails fast.
	require.Len(t, seen, 1)
	assert.Equal(t, err, seen[0])
}

func TestColumnTypesCopied(t *testing.T) {
	source := map[string]types.FilterType{"price": types.FilterTypeNumber}
	cfg, err := New(Options{ColumnTypes: source})
	require.NoError(t, err)

	source["price"] = types.FilterTypeText

	ft, ok := cfg.ColumnType("price")
	assert.True(t, ok)
	assert.Equal(t, types.FilterTypeNumber, ft)

	_, ok = cfg.ColumnType("missing")
	assert.False(t, ok)
}

func TestReservedParamNames(t *testing.T) {
	cfg, err := New(Options{Prefix: "q_"})
	require.NoError(t, err)

	assert.Equal(t, "q_compressed", cfg.CompressedParam())
	assert.Equal(t, "q_method", cfg.MethodParam())
}

func TestCallbacksPreferredOverLog(t *testing.T) {
	var got string
	cfg, err := New(Options{
		Callbacks: Callbacks{
			OnParseError: func(param string, err error) { got = param },
		},
	})
	require.NoError(t, err)

	cfg.ReportParseError("f_x_eq", assert.AnError)
	assert.Equal(t, "f_x_eq", got)
}

func TestReportWithoutCallbackDoesNotPanic(t *testing.T) {
	cfg, err := New(Options{Debug: true})
	require.NoError(t, err)

	cfg.ReportParseError("f_x_eq", assert.AnError)
	cfg.ReportTypeDetectionError("x", assert.AnError)
	cfg.ReportCompressionError(assert.AnError)
	cfg.ReportURLLength(9999)
}

func TestNamingConventions(t *testing.T) {
	asIs := NamingFor(NamingAsIs)
	assert.Equal(t, "orderDate", asIs.ToParam("orderDate"))
	assert.Equal(t, "orderDate", asIs.ToColumn("orderDate"))

	snake := NamingFor(NamingSnake)
	assert.Equal(t, "order_date", snake.ToParam("orderDate"))
	assert.Equal(t, "orderDate", snake.ToColumn("order_date"))
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]interface{}{
		"prefix":           "flt_",
		"mode":             "grouped",
		"grouped-format":   "json",
		"max-value-length": 50,
		"compression": map[string]interface{}{
			"strategy":  "always",
			"threshold": 100,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "flt_", opts.Prefix)
	assert.Equal(t, ModeGrouped, opts.Mode)
	assert.Equal(t, FormatJSON, opts.GroupedFormat)
	assert.Equal(t, 50, opts.MaxValueLength)
	require.NotNil(t, opts.Compression)
	assert.Equal(t, compression.StrategyAlways, opts.Compression.Strategy)
}

func TestDecodeOptionsRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeOptions(map[string]interface{}{
		"prefiks": "typo_",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
