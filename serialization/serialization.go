// serialization provides the interchangeable full-state encodings used
// by the grouped URL parameter: a flattened query string, JSON, and
// base64-wrapped JSON, with auto-detection of which encoding a given
// value uses.
package serialization

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gridtools/urlfilters/config"
	"github.com/gridtools/urlfilters/types"
	"github.com/gridtools/urlfilters/urlstate"
)

// Format names one grouped encoding.
type Format string

const (
	FormatNone        Format = ""
	FormatQueryString Format = "querystring"
	FormatJSON        Format = "json"
	FormatBase64      Format = "base64"
)

// FormatError reports a serialization failure tagged with the format
// and, for layered formats, which layer failed.
type FormatError struct {
	Format Format
	Layer  string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Layer != "" && string(e.Format) != e.Layer {
		return fmt.Sprintf("%s deserialization failed at %s layer: %v", e.Format, e.Layer, e.Err)
	}
	return fmt.Sprintf("%s deserialization failed: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Serializer is one full-state encoding.
type Serializer interface {
	Format() Format
	Serialize(fs types.FilterState) (string, error)
	Deserialize(s string) (types.FilterState, error)
}

// ForFormat returns the serializer for a configured grouped format.
// The query-string form flattens through the URL state codec; the
// others encode the state structurally.
func ForFormat(format config.GroupedFormat, uc urlstate.Codec) Serializer {
	switch format {
	case config.FormatJSON:
		return jsonSerializer{}
	case config.FormatBase64:
		return base64Serializer{}
	default:
		return queryStringSerializer{uc: uc}
	}
}

type queryStringSerializer struct {
	uc urlstate.Codec
}

func (queryStringSerializer) Format() Format { return FormatQueryString }

func (s queryStringSerializer) Serialize(fs types.FilterState) (string, error) {
	values, err := s.uc.SerializeFilters(fs)
	if err != nil {
		return "", err
	}
	return values.Encode(), nil
}

func (s queryStringSerializer) Deserialize(raw string) (types.FilterState, error) {
	// Per-entry failures are isolated by the URL state codec and
	// reported through its configured callback.
	return s.uc.ParseQueryFilters(raw), nil
}

type jsonSerializer struct{}

func (jsonSerializer) Format() Format { return FormatJSON }

func (jsonSerializer) Serialize(fs types.FilterState) (string, error) {
	data, err := json.Marshal(fs)
	if err != nil {
		return "", &FormatError{Format: FormatJSON, Err: err}
	}
	return string(data), nil
}

func (jsonSerializer) Deserialize(raw string) (types.FilterState, error) {
	var fs types.FilterState
	if err := json.Unmarshal([]byte(raw), &fs); err != nil {
		return nil, &FormatError{Format: FormatJSON, Err: err}
	}
	if fs == nil {
		return nil, &FormatError{Format: FormatJSON, Err: fmt.Errorf("decoded value is not an object")}
	}
	return fs, nil
}

type base64Serializer struct{}

func (base64Serializer) Format() Format { return FormatBase64 }

func (base64Serializer) Serialize(fs types.FilterState) (string, error) {
	data, err := json.Marshal(fs)
	if err != nil {
		return "", &FormatError{Format: FormatBase64, Layer: "json", Err: err}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (base64Serializer) Deserialize(raw string) (types.FilterState, error) {
	decoded, err := decodeBase64(raw)
	if err != nil {
		return nil, &FormatError{Format: FormatBase64, Layer: "base64", Err: err}
	}
	var fs types.FilterState
	if err := json.Unmarshal(decoded, &fs); err != nil {
		return nil, &FormatError{Format: FormatBase64, Layer: "json", Err: err}
	}
	if fs == nil {
		return nil, &FormatError{Format: FormatBase64, Layer: "json", Err: fmt.Errorf("decoded value is not an object")}
	}
	return fs, nil
}

// decodeBase64 accepts standard or URL-safe alphabets, padded or not,
// since the value may arrive through URL escaping that strips padding.
func decodeBase64(raw string) ([]byte, error) {
	if out, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return out, nil
	}
	if out, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return out, nil
	}
	if out, err := base64.URLEncoding.DecodeString(raw); err == nil {
		return out, nil
	}
	return base64.RawURLEncoding.DecodeString(raw)
}

// DetectFormat guesses the encoding of a grouped parameter value. The
// most specific check runs first: base64-wrapped JSON can
// coincidentally look like plain text, so it is tried before direct
// JSON, which in turn precedes the key=value heuristic. The order is
// part of the contract.
func DetectFormat(value string) Format {
	if value == "" {
		return FormatNone
	}

	if decoded, err := decodeBase64(value); err == nil {
		if looksLikeFilterObject(decoded) {
			return FormatBase64
		}
	}

	if looksLikeFilterObject([]byte(value)) {
		return FormatJSON
	}

	if strings.Contains(value, "=") && (strings.Contains(value, "&") || !strings.Contains(value, "{")) {
		return FormatQueryString
	}

	return FormatNone
}

func looksLikeFilterObject(data []byte) bool {
	var probe map[string]json.RawMessage
	return json.Unmarshal(data, &probe) == nil && probe != nil
}
