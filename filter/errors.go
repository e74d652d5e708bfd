package filter

import "fmt"

// InvalidFilterError reports a malformed filter parameter, an
// unsupported operation, or a value failing semantic validation.
type InvalidFilterError struct {
	Param  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	if e.Param == "" {
		return "invalid filter: " + e.Reason
	}
	return fmt.Sprintf("invalid filter parameter %q: %s", e.Param, e.Reason)
}

func NewInvalidFilterError(param, reason string) error {
	return &InvalidFilterError{Param: param, Reason: reason}
}

func invalidf(param, format string, args ...interface{}) error {
	return &InvalidFilterError{Param: param, Reason: fmt.Sprintf(format, args...)}
}
