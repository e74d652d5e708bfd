// urlstate converts between a full URL query string and a FilterState,
// delegating per-parameter work to the filter codec. Parsing isolates
// per-parameter failures; serialization fails fast.
package urlstate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/filter"
	"github.com/gridtools/urlfilters/types"
)

// InvalidURLError reports a structurally unparsable URL.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// Codec converts whole URLs. It owns no state beyond its configuration.
type Codec struct {
	cfg    config.Config
	params filter.Codec
}

// NewCodec builds a URL state codec. The resolver is handed to the
// parameter codec for column type hints and may be nil.
func NewCodec(cfg config.Config, resolver filter.TypeResolver) Codec {
	return Codec{cfg: cfg, params: filter.NewCodec(cfg, resolver)}
}

// Params exposes the underlying single-parameter codec.
func (c Codec) Params() filter.Codec { return c.params }

// queryPair is one decoded key=value pair in original URL order.
type queryPair struct {
	key   string
	value string
}

// parseQueryOrdered decodes a raw query string preserving parameter
// order, which url.Values cannot. Pairs whose escaping is malformed are
// returned separately so filter-prefixed ones can be reported.
func parseQueryOrdered(rawQuery string) (pairs []queryPair, malformed []string) {
	for _, chunk := range strings.Split(rawQuery, "&") {
		if chunk == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(chunk, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			malformed = append(malformed, chunk)
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			malformed = append(malformed, chunk)
			continue
		}
		pairs = append(pairs, queryPair{key: key, value: value})
	}
	return pairs, malformed
}

// isReservedParam reports whether a parameter name is claimed by the
// grouped or compressed transport rather than an individual filter.
func (c Codec) isReservedParam(name string) bool {
	return name == c.cfg.GroupedParam ||
		name == c.cfg.CompressedParam() ||
		name == c.cfg.MethodParam()
}

// ParseURLFilters extracts the filter state from a URL. Parameters not
// carrying the configured prefix are ignored here (they are preserved
// by GenerateURL, not part of the state). A malformed filter parameter
// is reported through the parse-error callback and skipped; the rest of
// the URL is still processed. Duplicate parameters for one column
// resolve to the last one in URL order.
func (c Codec) ParseURLFilters(rawURL string) (types.FilterState, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}

	state := types.FilterState{}
	pairs, malformed := parseQueryOrdered(u.RawQuery)
	for _, chunk := range malformed {
		if strings.HasPrefix(chunk, c.cfg.Prefix) {
			c.cfg.ReportParseError(chunk, fmt.Errorf("malformed query escaping"))
		}
	}

	for _, p := range pairs {
		if !strings.HasPrefix(p.key, c.cfg.Prefix) || c.isReservedParam(p.key) {
			continue
		}
		column, f, err := c.params.ParseParam(p.key, p.value)
		if err != nil {
			c.cfg.ReportParseError(p.key, err)
			continue
		}
		state[column] = f
	}
	return state, nil
}

// ParseQueryFilters parses a bare query string (no leading "?") the
// same way ParseURLFilters treats a URL's query component.
func (c Codec) ParseQueryFilters(query string) types.FilterState {
	state := types.FilterState{}
	pairs, malformed := parseQueryOrdered(query)
	for _, chunk := range malformed {
		c.cfg.ReportParseError(chunk, fmt.Errorf("malformed query escaping"))
	}
	for _, p := range pairs {
		if !strings.HasPrefix(p.key, c.cfg.Prefix) || c.isReservedParam(p.key) {
			continue
		}
		column, f, err := c.params.ParseParam(p.key, p.value)
		if err != nil {
			c.cfg.ReportParseError(p.key, err)
			continue
		}
		state[column] = f
	}
	return state
}

// SerializeFilters renders every filter into a query parameter
// collection. Unlike parsing, any entry failure fails the whole call:
// caller-supplied state is a programming error to fix, not degraded
// external input. Columns are processed in sorted order for stable
// output.
func (c Codec) SerializeFilters(fs types.FilterState) (url.Values, error) {
	columns := make([]string, 0, len(fs))
	for column := range fs {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	values := url.Values{}
	for _, column := range columns {
		name, value, err := c.params.SerializeParam(column, fs[column])
		if err != nil {
			return nil, err
		}
		values.Set(name, value)
	}
	return values, nil
}

// GenerateURL merges the filter state into baseURL, replacing any
// previous filter parameters while preserving every other query
// parameter, and returns the absolute URL string.
func (c Codec) GenerateURL(baseURL string, fs types.FilterState) (string, error) {
	params, err := c.SerializeFilters(fs)
	if err != nil {
		return "", err
	}
	return c.MergeParams(baseURL, params)
}

// MergeParams replaces the filter-carrying parameters of baseURL with
// the given parameters, keeping all unrelated ones.
func (c Codec) MergeParams(baseURL string, params url.Values) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", &InvalidURLError{URL: baseURL, Err: err}
	}

	merged := c.NonFilterValues(u)
	for name, vals := range params {
		merged[name] = vals
	}

	u.RawQuery = merged.Encode()
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// NonFilterValues returns the query parameters of u that are not
// filter-carrying: everything without the configured prefix.
func (c Codec) NonFilterValues(u *url.URL) url.Values {
	preserved := url.Values{}
	pairs, _ := parseQueryOrdered(u.RawQuery)
	for _, p := range pairs {
		if strings.HasPrefix(p.key, c.cfg.Prefix) || c.isReservedParam(p.key) {
			continue
		}
		preserved.Add(p.key, p.value)
	}
	return preserved
}

// NonFilterParams parses rawURL and returns its non-filter parameters.
func (c Codec) NonFilterParams(rawURL string) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}
	return c.NonFilterValues(u), nil
}
