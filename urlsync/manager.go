// urlsync is the façade callers consume: it owns the configuration and
// drives full round trips between the grid's filter model and the URL,
// composing the parameter codec, grouped serialization and the
// compression engine.
package urlsync

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/gridtools/urlfilters/compression"
	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/grid"
	"github.com/gridtools/urlfilters/serialization"
	"github.com/gridtools/urlfilters/types"
	"github.com/gridtools/urlfilters/urlstate"
)

// Manager synchronizes one grid instance with URL query parameters.
// All codec operations are synchronous and complete in-memory; the
// only state carried between calls is the configuration, the column
// type cache and the non-filter parameters seen on the last ingested
// URL.
type Manager struct {
	grid grid.Grid

	mu        sync.RWMutex
	cfg       config.Config
	typeCache *grid.TypeCache
	engine    *compression.Engine
	urls      urlstate.Codec
	grouped   serialization.Codec
	preserved url.Values
}

// New creates a manager around the given grid collaborator.
func New(g grid.Grid, opts config.Options) (*Manager, error) {
	if g == nil {
		return nil, config.ErrNilGrid
	}
	cfg, err := config.New(opts)
	if err != nil {
		return nil, err
	}
	m := &Manager{grid: g}
	m.install(cfg)
	return m, nil
}

// install wires the codecs for a merged configuration. Called under no
// lock from New and under the write lock from UpdateOptions.
func (m *Manager) install(cfg config.Config) {
	m.cfg = cfg
	m.typeCache = grid.NewTypeCache(m.grid, cfg)
	m.engine = compression.NewEngine(cfg.Compression)
	m.urls = urlstate.NewCodec(cfg, m.typeCache.Resolve)
	m.grouped = serialization.NewCodec(
		serialization.ForFormat(cfg.GroupedFormat, m.urls),
		func(format serialization.Format, err error) {
			cfg.ReportParseError(cfg.GroupedParam, fmt.Errorf("%s: %w", format, err))
		},
	)
}

// UpdateOptions replaces the configuration with a freshly merged one.
// The type cache is rebuilt since overrides may have changed.
func (m *Manager) UpdateOptions(opts config.Options) error {
	cfg, err := config.New(opts)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.install(cfg)
	return nil
}

// Grid returns the injected grid collaborator.
func (m *Manager) Grid() grid.Grid { return m.grid }

// Config returns the current merged configuration.
func (m *Manager) Config() config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// GridToURL reads the grid's current filter model and renders it onto
// baseURL. Non-filter parameters of baseURL, and those cached from the
// last ingested URL, are preserved. When the generated URL exceeds the
// configured maximum length the overflow is reported through the
// callback and the URL is still returned.
func (m *Manager) GridToURL(baseURL string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := grid.ReadFilterModel(m.grid, m.cfg)
	params, err := m.encodeState(state)
	if err != nil {
		return "", err
	}

	overlay := url.Values{}
	for k, vs := range m.preserved {
		overlay[k] = vs
	}
	for k, vs := range params {
		overlay[k] = vs
	}

	out, err := m.urls.MergeParams(baseURL, overlay)
	if err != nil {
		return "", err
	}
	if len(out) > m.cfg.MaxURLLength {
		m.cfg.ReportURLLength(len(out))
	}
	return out, nil
}

// encodeState renders a filter state into the URL parameter collection
// for the configured mode, applying compression when it pays off.
func (m *Manager) encodeState(state types.FilterState) (url.Values, error) {
	params := url.Values{}
	if len(state) == 0 {
		return params, nil
	}

	if m.engine.Active() {
		payload := m.grouped.Serialize(state)
		if payload != "" {
			res := m.engine.Compress(payload)
			if res.Method != compression.MethodNone {
				params.Set(m.cfg.CompressedParam(), res.Data)
				params.Set(m.cfg.MethodParam(), res.Method)
				return params, nil
			}
		}
	}

	if m.cfg.Mode == config.ModeGrouped {
		payload := m.grouped.Serialize(state)
		if payload != "" {
			params.Set(m.cfg.GroupedParam, payload)
		}
		return params, nil
	}

	return m.urls.SerializeFilters(state)
}

// URLToGrid decodes the filter state carried by rawURL and applies it
// to the grid in one atomic update. Compressed payloads that fail to
// decompress degrade to the uncompressed parameters; they never fail
// the call.
func (m *Manager) URLToGrid(rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, preserved, err := m.decode(rawURL)
	if err != nil {
		return err
	}
	m.preserved = preserved
	grid.ApplyFilterModel(m.grid, state, m.cfg)
	return nil
}

// DecodeURL decodes the filter state carried by rawURL without
// touching the grid.
func (m *Manager) DecodeURL(rawURL string) (types.FilterState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, _, err := m.decode(rawURL)
	return state, err
}

func (m *Manager) decode(rawURL string) (types.FilterState, url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, &urlstate.InvalidURLError{URL: rawURL, Err: err}
	}
	preserved := m.urls.NonFilterValues(u)
	q := u.Query()

	if payload := q.Get(m.cfg.CompressedParam()); payload != "" {
		method := q.Get(m.cfg.MethodParam())
		if method == "" {
			method = compression.DetectMethod(payload)
		}
		plain, err := m.engine.Decompress(payload, method)
		if err == nil {
			return m.deserializeDetected(plain), preserved, nil
		}
		// Fall back to the uncompressed parameters below.
		m.cfg.ReportCompressionError(err)
	}

	if payload := q.Get(m.cfg.GroupedParam); payload != "" {
		return m.deserializeDetected(payload), preserved, nil
	}

	state, err := m.urls.ParseURLFilters(rawURL)
	if err != nil {
		return nil, nil, err
	}
	return state, preserved, nil
}

// deserializeDetected decodes a grouped payload whose format is
// auto-detected. Unrecognizable payloads yield an empty state, reported
// through the parse-error callback.
func (m *Manager) deserializeDetected(payload string) types.FilterState {
	format := serialization.DetectFormat(payload)
	if format == serialization.FormatNone {
		m.cfg.ReportParseError(m.cfg.GroupedParam, fmt.Errorf("unrecognized grouped filter encoding"))
		return types.FilterState{}
	}
	codec := serialization.NewCodec(
		serialization.ForFormat(config.GroupedFormat(format), m.urls),
		func(f serialization.Format, err error) {
			m.cfg.ReportParseError(m.cfg.GroupedParam, fmt.Errorf("%s: %w", f, err))
		},
	)
	return codec.Deserialize(payload)
}

// FilterCount reports how many filters are currently active on the
// grid.
func (m *Manager) FilterCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(grid.ReadFilterModel(m.grid, m.cfg))
}

// URLLength reports the length of the URL that GridToURL would produce
// for the current grid state.
func (m *Manager) URLLength(baseURL string) (int, error) {
	out, err := m.GridToURL(baseURL)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// CompressionActive reports whether the current configuration can ever
// produce compressed output.
func (m *Manager) CompressionActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.Active()
}

// InvalidateColumn drops the cached type inference for one column.
func (m *Manager) InvalidateColumn(column string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.typeCache.Invalidate(column)
}

// ColumnsChanged rebuilds the type detection cache. Call whenever the
// grid's column set changes.
func (m *Manager) ColumnsChanged() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.typeCache.Reset()
}

// Close releases the manager's cached state. The manager must not be
// used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeCache.Reset()
	m.preserved = nil
}
