// compression implements the optional text compression step applied to
// serialized filter payloads before they are placed in a URL parameter.
// Every algorithm produces self-describing output carrying a short
// method tag, so decompression can dispatch without external metadata.
package compression

import (
	"fmt"
	"strings"
)

// Strategy governs when compression is attempted.
type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyAlways Strategy = "always"
	StrategyNever  Strategy = "never"
)

const (
	MethodNone   = "none"
	MethodLZ     = "lz"
	MethodRLE    = "gzip"
	MethodBase64 = "base64"
	MethodZstd   = "zstd"
)

// effectiveRatio is the cutoff below which an algorithm is considered
// good enough to stop trying the remaining ones.
const effectiveRatio = 0.9

// Options configures the engine. The zero value is usable: defaults
// are filled in by NewEngine.
type Options struct {
	Strategy   Strategy `mapstructure:"strategy" validate:"omitempty,oneof=auto always never"`
	Threshold  int      `mapstructure:"threshold" validate:"gte=0"`
	Algorithms []string `mapstructure:"algorithms"`
	Level      int      `mapstructure:"level" validate:"gte=0,lte=9"`
}

// DefaultOptions returns the engine defaults: automatic compression of
// payloads over 1000 characters, trying the strongest algorithm first.
func DefaultOptions() Options {
	return Options{
		Strategy:   StrategyAuto,
		Threshold:  1000,
		Algorithms: []string{MethodZstd, MethodLZ, MethodRLE, MethodBase64},
		Level:      3,
	}
}

// Result describes the outcome of one Compress call. Method is "none"
// whenever compression was skipped or did not pay off.
type Result struct {
	Data             string  `json:"data"`
	Method           string  `json:"method"`
	OriginalLength   int     `json:"originalLength"`
	CompressedLength int     `json:"compressedLength"`
	Ratio            float64 `json:"ratio"`
}

// Algorithm is one interchangeable compressor. Compress returns the
// tagged payload; Decompress accepts a tagged payload and must be a
// strict two-sided inverse of Compress for any input the engine itself
// produced.
type Algorithm interface {
	Name() string
	Tag() string
	Compress(s string) (string, error)
	Decompress(s string) (string, error)
}

// Engine drives algorithm selection and fallback.
type Engine struct {
	opts       Options
	algorithms map[string]Algorithm
	order      []string
}

// NewEngine builds an engine from the given options. Unknown algorithm
// names and algorithms that fail to initialize are dropped from the
// preference order; an empty order makes Compress a passthrough.
func NewEngine(opts Options) *Engine {
	if opts.Strategy == "" {
		opts.Strategy = StrategyAuto
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if len(opts.Algorithms) == 0 {
		opts.Algorithms = DefaultOptions().Algorithms
	}
	if opts.Level <= 0 {
		opts.Level = DefaultOptions().Level
	}

	e := &Engine{
		opts:       opts,
		algorithms: make(map[string]Algorithm),
	}
	for _, name := range opts.Algorithms {
		if _, ok := e.algorithms[name]; ok {
			continue
		}
		alg := newAlgorithm(name, opts.Level)
		if alg == nil {
			continue
		}
		e.algorithms[name] = alg
		e.order = append(e.order, name)
	}
	return e
}

func newAlgorithm(name string, level int) Algorithm {
	switch name {
	case MethodLZ:
		return lzAlgorithm{}
	case MethodRLE:
		return rleAlgorithm{}
	case MethodBase64:
		return base64Algorithm{}
	case MethodZstd:
		z, err := newZstdAlgorithm(level)
		if err != nil {
			return nil
		}
		return z
	default:
		return nil
	}
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy { return e.opts.Strategy }

// Active reports whether this engine can ever produce compressed output.
func (e *Engine) Active() bool {
	return e.opts.Strategy != StrategyNever && len(e.order) > 0
}

// Compress applies the configured strategy to s. It never fails: when
// no algorithm is available or none succeeds, the input is returned
// unchanged with Method "none".
func (e *Engine) Compress(s string) Result {
	uncompressed := Result{
		Data:             s,
		Method:           MethodNone,
		OriginalLength:   len(s),
		CompressedLength: len(s),
		Ratio:            1.0,
	}

	if e.opts.Strategy == StrategyNever {
		return uncompressed
	}
	if e.opts.Strategy == StrategyAuto && len(s) < e.opts.Threshold {
		return uncompressed
	}

	var best Result
	found := false
	for _, name := range e.order {
		alg := e.algorithms[name]
		data, err := alg.Compress(s)
		if err != nil {
			continue
		}
		r := Result{
			Data:             data,
			Method:           name,
			OriginalLength:   len(s),
			CompressedLength: len(data),
			Ratio:            ratio(len(data), len(s)),
		}
		// Good enough, stop trying the remaining algorithms.
		if r.Ratio < effectiveRatio {
			return r
		}
		if !found || r.Ratio < best.Ratio {
			best = r
			found = true
		}
	}

	if !found {
		return uncompressed
	}
	if e.opts.Strategy == StrategyAlways {
		return best
	}
	// auto over threshold: only take the trial when it actually shrinks
	// the payload.
	if best.Ratio < 1.0 {
		return best
	}
	return uncompressed
}

// Decompress reverses a compressed payload. Method "none" or empty is
// a passthrough. The caller is expected to treat any error as a request
// to fall back to uncompressed parsing.
func (e *Engine) Decompress(data, method string) (string, error) {
	if method == "" || method == MethodNone {
		return data, nil
	}
	alg, ok := e.algorithms[method]
	if !ok {
		// Allow decompressing payloads produced under a different
		// configuration as long as the method itself is known.
		alg = newAlgorithm(method, e.opts.Level)
		if alg == nil {
			return "", fmt.Errorf("unknown compression method %q", method)
		}
	}
	out, err := alg.Decompress(data)
	if err != nil {
		return "", fmt.Errorf("%s decompression failed: %w", method, err)
	}
	return out, nil
}

// DetectMethod returns the compression method implied by the payload's
// literal prefix tag, or "none" when no recognized tag is present.
func DetectMethod(data string) string {
	switch {
	case strings.HasPrefix(data, zstdTag):
		return MethodZstd
	case strings.HasPrefix(data, lzTag):
		return MethodLZ
	case strings.HasPrefix(data, rleTag):
		return MethodRLE
	case strings.HasPrefix(data, base64Tag):
		return MethodBase64
	default:
		return MethodNone
	}
}

func ratio(compressed, original int) float64 {
	if original == 0 {
		return 1.0
	}
	return float64(compressed) / float64(original)
}
