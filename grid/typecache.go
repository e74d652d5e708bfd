package grid

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/types"
)

// TypeCache memoizes the inferred filter type per column. It is an
// explicitly managed resource: callers must invalidate it when the
// grid's column set changes and clear it when the owning manager is
// torn down.
type TypeCache struct {
	mu    sync.RWMutex
	grid  Grid
	cfg   config.Config
	cache map[string]types.FilterType
}

func NewTypeCache(g Grid, cfg config.Config) *TypeCache {
	return &TypeCache{
		grid:  g,
		cfg:   cfg,
		cache: make(map[string]types.FilterType),
	}
}

// Resolve returns the filter type for a column, if one can be
// determined. Precedence: explicit configuration override, then the
// grid's column definition, then (outside strict mode) nothing, letting
// the operation token decide downstream.
func (c *TypeCache) Resolve(column string) (types.FilterType, bool) {
	if c.cfg.TypeDetection == config.DetectionDisabled {
		return "", false
	}

	if t, ok := c.cfg.ColumnType(column); ok {
		return t, true
	}

	c.mu.RLock()
	t, ok := c.cache[column]
	c.mu.RUnlock()
	if ok {
		return t, true
	}

	t, ok = c.detect(column)
	if !ok {
		if c.cfg.TypeDetection == config.DetectionStrict {
			c.cfg.ReportTypeDetectionError(column, fmt.Errorf("no type hint available for column %q", column))
		}
		return "", false
	}

	c.mu.Lock()
	c.cache[column] = t
	c.mu.Unlock()
	return t, true
}

func (c *TypeCache) detect(column string) (types.FilterType, bool) {
	col, ok := c.grid.GetColumn(column)
	if !ok {
		return "", false
	}
	if t, ok := typeFromHint(col.FilterKind); ok {
		return t, true
	}
	return typeFromHint(col.CellDataType)
}

// typeFromHint maps a declared filter widget kind or cell data type to
// a filter type.
func typeFromHint(hint string) (types.FilterType, bool) {
	h := strings.ToLower(hint)
	switch {
	case h == "":
		return "", false
	case strings.Contains(h, "number"):
		return types.FilterTypeNumber, true
	case strings.Contains(h, "date"):
		return types.FilterTypeDate, true
	case strings.Contains(h, "set"):
		return types.FilterTypeSet, true
	case strings.Contains(h, "text") || strings.Contains(h, "string"):
		return types.FilterTypeText, true
	default:
		return "", false
	}
}

// Invalidate drops the cached type for one column.
func (c *TypeCache) Invalidate(column string) {
	c.mu.Lock()
	delete(c.cache, column)
	c.mu.Unlock()
}

// Reset clears the whole cache. Call when the grid's column set
// changes.
func (c *TypeCache) Reset() {
	c.mu.Lock()
	c.cache = make(map[string]types.FilterType)
	c.mu.Unlock()
}

// Len reports the number of memoized columns.
func (c *TypeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
