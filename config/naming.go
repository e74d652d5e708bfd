package config

import "github.com/iancoleman/strcase"

// ColumnNaming selects how column identifiers are rendered in URL
// parameter names.
type ColumnNaming string

const (
	// NamingAsIs uses column identifiers verbatim.
	NamingAsIs ColumnNaming = "asIs"
	// NamingSnake renders camelCase column identifiers as snake_case in
	// the URL for readability. Round-tripping assumes lowerCamel column
	// identifiers on the grid side.
	NamingSnake ColumnNaming = "snake"
)

type NamingConvention interface {
	// ToParam converts a grid column identifier into its URL spelling.
	ToParam(column string) string
	// ToColumn converts the URL spelling back into the grid column
	// identifier.
	ToColumn(param string) string
}

func NamingFor(naming ColumnNaming) NamingConvention {
	if naming == NamingSnake {
		return snakeNaming{}
	}
	return asIsNaming{}
}

type asIsNaming struct{}

func (asIsNaming) ToParam(column string) string { return column }
func (asIsNaming) ToColumn(param string) string { return param }

type snakeNaming struct{}

func (snakeNaming) ToParam(column string) string { return strcase.ToSnake(column) }
func (snakeNaming) ToColumn(param string) string { return strcase.ToLowerCamel(param) }
