// config holds the merged, validated configuration shared by all codec
// operations. A Config is created once per manager instance and never
// partially mutated: updating options produces a new merged value.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/gridtools/urlfilters/compression"
	"github.com/gridtools/urlfilters/log"
	"github.com/gridtools/urlfilters/types"
)

// Mode selects how the filter state travels on the URL.
type Mode string

const (
	// ModeIndividual encodes one URL parameter per filter.
	ModeIndividual Mode = "individual"
	// ModeGrouped encodes the whole filter state under a single parameter.
	ModeGrouped Mode = "grouped"
)

// GroupedFormat selects the encoding of the grouped parameter value.
type GroupedFormat string

const (
	FormatQueryString GroupedFormat = "querystring"
	FormatJSON        GroupedFormat = "json"
	FormatBase64      GroupedFormat = "base64"
)

// TypeDetection controls how filter types are inferred for columns.
type TypeDetection string

const (
	// DetectionSmart uses explicit overrides, then grid column hints,
	// then the operation token.
	DetectionSmart TypeDetection = "smart"
	// DetectionStrict requires an explicit override or a grid column
	// hint; token-only inference is reported as a detection error.
	DetectionStrict TypeDetection = "strict"
	// DetectionDisabled infers from the operation token alone.
	DetectionDisabled TypeDetection = "disabled"
)

// Callbacks receive isolated per-item failures. Failures in read-many
// operations are reported here and skipped; with no callback configured
// they are logged at debug level only.
type Callbacks struct {
	OnParseError         func(param string, err error)
	OnTypeDetectionError func(column string, err error)
	OnURLLengthExceeded  func(length, max int)
	OnValidationError    func(err error)
	OnCompressionError   func(err error)
}

// Options is the caller-facing configuration surface. The zero value
// selects all defaults.
type Options struct {
	Prefix         string                      `mapstructure:"prefix"`
	GroupedParam   string                      `mapstructure:"grouped-param"`
	Mode           Mode                        `mapstructure:"mode"`
	GroupedFormat  GroupedFormat               `mapstructure:"grouped-format"`
	TypeDetection  TypeDetection               `mapstructure:"type-detection"`
	ColumnNaming   ColumnNaming                `mapstructure:"column-naming"`
	MaxValueLength int                         `mapstructure:"max-value-length"`
	MaxURLLength   int                         `mapstructure:"max-url-length"`
	MaxSetValues   int                         `mapstructure:"max-set-values"`
	ColumnTypes    map[string]types.FilterType `mapstructure:"column-types"`
	Compression    *compression.Options        `mapstructure:"compression"`
	Callbacks      Callbacks                   `mapstructure:"-"`
	Logger         log.Logger                  `mapstructure:"-"`
	Debug          bool                        `mapstructure:"debug"`
}

// Config is the fully populated merge product. Every field carries its
// effective value; no optionals remain.
type Config struct {
	Prefix         string        `validate:"required"`
	GroupedParam   string        `validate:"required"`
	Mode           Mode          `validate:"oneof=individual grouped"`
	GroupedFormat  GroupedFormat `validate:"oneof=querystring json base64"`
	TypeDetection  TypeDetection `validate:"oneof=smart strict disabled"`
	ColumnNaming   ColumnNaming  `validate:"oneof=asIs snake"`
	MaxValueLength int           `validate:"gt=0"`
	MaxURLLength   int           `validate:"gt=0"`
	MaxSetValues   int           `validate:"gt=0"`
	ColumnTypes    map[string]types.FilterType
	Compression    compression.Options
	Callbacks      Callbacks
	Logger         log.Logger
	Debug          bool

	naming NamingConvention
}

const (
	DefaultPrefix         = "f_"
	DefaultGroupedParam   = "grid_filters"
	DefaultMaxValueLength = 200
	DefaultMaxURLLength   = 2000
	DefaultMaxSetValues   = 100
)

// prefixForbidden are characters that would corrupt the query string
// if they appeared in the parameter prefix or grouped parameter name.
const prefixForbidden = "=&?#"

// New merges the given options over the defaults and validates the
// result.
func New(opts Options) (Config, error) {
	cfg := Config{
		Prefix:         orDefault(opts.Prefix, DefaultPrefix),
		GroupedParam:   orDefault(opts.GroupedParam, DefaultGroupedParam),
		Mode:           Mode(orDefault(string(opts.Mode), string(ModeIndividual))),
		GroupedFormat:  GroupedFormat(orDefault(string(opts.GroupedFormat), string(FormatQueryString))),
		TypeDetection:  TypeDetection(orDefault(string(opts.TypeDetection), string(DetectionSmart))),
		ColumnNaming:   ColumnNaming(orDefault(string(opts.ColumnNaming), string(NamingAsIs))),
		MaxValueLength: orDefaultInt(opts.MaxValueLength, DefaultMaxValueLength),
		MaxURLLength:   orDefaultInt(opts.MaxURLLength, DefaultMaxURLLength),
		MaxSetValues:   orDefaultInt(opts.MaxSetValues, DefaultMaxSetValues),
		Callbacks:      opts.Callbacks,
		Logger:         opts.Logger,
		Debug:          opts.Debug,
	}

	if opts.ColumnTypes != nil {
		cfg.ColumnTypes = make(map[string]types.FilterType, len(opts.ColumnTypes))
		for k, v := range opts.ColumnTypes {
			cfg.ColumnTypes[k] = v
		}
	} else {
		cfg.ColumnTypes = map[string]types.FilterType{}
	}

	if opts.Compression != nil {
		cfg.Compression = *opts.Compression
		if cfg.Compression.Strategy == "" {
			cfg.Compression.Strategy = compression.StrategyAuto
		}
	} else {
		// Compression is off unless explicitly configured.
		cfg.Compression = compression.DefaultOptions()
		cfg.Compression.Strategy = compression.StrategyNever
	}

	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}

	if err := validate(cfg); err != nil {
		return Config{}, cfg.reportValidationError(err)
	}
	if strings.ContainsAny(cfg.Prefix, prefixForbidden) {
		return Config{}, cfg.reportValidationError(
			fmt.Errorf("prefix %q must not contain any of %q", cfg.Prefix, prefixForbidden))
	}
	if strings.ContainsAny(cfg.GroupedParam, prefixForbidden) {
		return Config{}, cfg.reportValidationError(
			fmt.Errorf("grouped parameter name %q must not contain any of %q", cfg.GroupedParam, prefixForbidden))
	}

	cfg.naming = NamingFor(cfg.ColumnNaming)
	return cfg, nil
}

// Naming returns the column naming convention for URL parameter names.
func (c Config) Naming() NamingConvention {
	if c.naming == nil {
		return NamingFor(NamingAsIs)
	}
	return c.naming
}

// ColumnType returns the explicitly configured filter type for a
// column, if any.
func (c Config) ColumnType(column string) (types.FilterType, bool) {
	t, ok := c.ColumnTypes[column]
	return t, ok
}

// CompressedParam is the URL parameter carrying the compressed payload.
func (c Config) CompressedParam() string { return c.Prefix + "compressed" }

// MethodParam is the URL parameter naming the compression method.
func (c Config) MethodParam() string { return c.Prefix + "method" }

// reportValidationError routes a configuration validation failure to
// the callback, if one is configured, and returns the error unchanged:
// invalid configuration is always fail-fast.
func (c Config) reportValidationError(err error) error {
	if c.Callbacks.OnValidationError != nil {
		c.Callbacks.OnValidationError(err)
	}
	return err
}

// ReportParseError routes an isolated parse failure to the configured
// callback, falling back to a debug log entry.
func (c Config) ReportParseError(param string, err error) {
	if c.Callbacks.OnParseError != nil {
		c.Callbacks.OnParseError(param, err)
		return
	}
	if c.Debug {
		c.Logger.Warn("filter parameter skipped", "param", param, "error", err)
	}
}

// ReportTypeDetectionError routes a type detection failure.
func (c Config) ReportTypeDetectionError(column string, err error) {
	if c.Callbacks.OnTypeDetectionError != nil {
		c.Callbacks.OnTypeDetectionError(column, err)
		return
	}
	if c.Debug {
		c.Logger.Warn("filter type detection failed", "column", column, "error", err)
	}
}

// ReportCompressionError routes a compression failure. Compression
// failures always degrade to the uncompressed path, never abort.
func (c Config) ReportCompressionError(err error) {
	if c.Callbacks.OnCompressionError != nil {
		c.Callbacks.OnCompressionError(err)
		return
	}
	if c.Debug {
		c.Logger.Warn("compression failed, using uncompressed payload", "error", err)
	}
}

// ReportURLLength routes a URL length overflow notice.
func (c Config) ReportURLLength(length int) {
	if c.Callbacks.OnURLLengthExceeded != nil {
		c.Callbacks.OnURLLengthExceeded(length, c.MaxURLLength)
		return
	}
	if c.Debug {
		c.Logger.Warn("generated URL exceeds configured maximum", "length", length, "max", c.MaxURLLength)
	}
}

// DecodeOptions builds Options from a loosely typed map, as produced by
// a configuration file or viper. Unknown keys are rejected.
func DecodeOptions(raw map[string]interface{}) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// ErrNilGrid is returned when a manager is created without a grid.
var ErrNilGrid = errors.New("a grid adapter is required")
