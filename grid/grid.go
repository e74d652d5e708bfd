// grid defines the boundary to the data-grid collaborator. The grid is
// an injected capability with exactly two model operations plus column
// introspection; production and test implementations satisfy the same
// interface.
package grid

// NativeFilter is the grid component's loose in-memory filter shape.
type NativeFilter struct {
	FilterType string      `json:"filterType"`
	Type       string      `json:"type,omitempty"`
	Filter     interface{} `json:"filter,omitempty"`
	FilterTo   interface{} `json:"filterTo,omitempty"`
	DateFrom   string      `json:"dateFrom,omitempty"`
	DateTo     string      `json:"dateTo,omitempty"`
	Values     []string    `json:"values,omitempty"`
}

// Column is the subset of a grid column definition used for filter
// type hints.
type Column struct {
	ID           string
	FilterKind   string
	CellDataType string
}

// Grid is the consumed collaborator interface.
type Grid interface {
	// GetFilterModel reads the grid's current native filter model.
	GetFilterModel() map[string]NativeFilter
	// SetFilterModel replaces the grid's filter model in one atomic
	// update.
	SetFilterModel(model map[string]NativeFilter)
	// GetColumn looks up a column definition for type detection hints.
	GetColumn(id string) (Column, bool)
}
