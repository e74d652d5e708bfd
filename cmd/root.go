package cmd

import (
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gridtools/urlfilters/compression"
	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/grid"
	"github.com/gridtools/urlfilters/log"
	"github.com/gridtools/urlfilters/types"
	"github.com/gridtools/urlfilters/urlsync"
)

// Environment variables prefixed with "URL_FILTERS_" can override
// settings, e.g. "URL_FILTERS_PREFIX".
const envVarPrefix = "url_filters"

var (
	cfgFile string
	logger  log.Logger
)

var rootCmd = &cobra.Command{
	Use:   os.Args[0] + " [parse|generate|serve] [OPTIONS]",
	Short: "Inspect and build shareable grid filter URLs",
}

var parseCmd = &cobra.Command{
	Use:   "parse URL",
	Short: "Decode the filter state carried by a URL and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}
		defer manager.Close()

		state, err := manager.DecodeURL(args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate --base URL --state JSON",
	Short: "Render a filter state JSON document onto a base URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := viper.GetString("base")
		if base == "" {
			return fmt.Errorf("--base is required")
		}

		var state types.FilterState
		if err := json.Unmarshal([]byte(viper.GetString("state")), &state); err != nil {
			return fmt.Errorf("invalid filter state: %w", err)
		}

		manager, err := newManager()
		if err != nil {
			return err
		}
		defer manager.Close()

		g := manager.Grid().(*grid.FakeGrid)
		grid.ApplyFilterModel(g, state, manager.Config())

		out, err := manager.GridToURL(base)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		stdlog.Fatalf("unable to initialize logger: %v", err)
	}
	logger = log.NewZapLogger(zapLogger)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.String("prefix", config.DefaultPrefix, "URL parameter prefix for individual filters")
	flags.String("grouped-param", config.DefaultGroupedParam, "parameter name for grouped serialization")
	flags.String("mode", string(config.ModeIndividual), "serialization mode: individual or grouped")
	flags.String("grouped-format", string(config.FormatQueryString), "grouped encoding: querystring, json or base64")
	flags.Int("max-value-length", config.DefaultMaxValueLength, "maximum length of a single filter value")
	flags.Int("max-url-length", config.DefaultMaxURLLength, "generated URL length that triggers a warning")
	flags.Bool("debug", false, "log skipped filter parameters")

	flags.Bool("compress", false, "compress the filter payload")
	flags.String("compress-strategy", string(compression.StrategyAuto), "compression strategy: auto, always or never")
	flags.Int("compress-threshold", 1000, "payload size that triggers compression in auto mode")
	flags.StringSlice("compress-algorithms", compression.DefaultOptions().Algorithms, "compression algorithm preference order")
	flags.Int("compress-level", 3, "compression level for algorithms that support one")

	generateCmd.Flags().String("base", "", "base URL to render the filters onto")
	generateCmd.Flags().String("state", "{}", "filter state as JSON")

	serveCmd.Flags().Int("port", 8080, "debug endpoint port")

	bindFlags(flags)
	bindFlags(generateCmd.Flags())
	bindFlags(serveCmd.Flags())

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(parseCmd, generateCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			_ = viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})
}

func initialize() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		logger.Error("unable to read config file", "file", cfgFile, "error", err)
		os.Exit(1)
	}
}

// optionKeys are the viper keys that map onto config.Options.
var optionKeys = []string{
	"prefix", "grouped-param", "mode", "grouped-format", "type-detection",
	"column-naming", "max-value-length", "max-url-length", "max-set-values",
	"column-types", "debug",
}

func newManager() (*urlsync.Manager, error) {
	raw := map[string]interface{}{}
	for _, key := range optionKeys {
		if viper.IsSet(key) {
			raw[key] = viper.Get(key)
		}
	}
	opts, err := config.DecodeOptions(raw)
	if err != nil {
		return nil, err
	}

	if viper.GetBool("compress") {
		opts.Compression = &compression.Options{
			Strategy:   compression.Strategy(viper.GetString("compress-strategy")),
			Threshold:  viper.GetInt("compress-threshold"),
			Algorithms: viper.GetStringSlice("compress-algorithms"),
			Level:      viper.GetInt("compress-level"),
		}
	}
	opts.Logger = logger

	return urlsync.New(grid.NewFakeGrid(), opts)
}
