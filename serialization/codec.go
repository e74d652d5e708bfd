package serialization

import "github.com/gridtools/urlfilters/types"

// ParseErrorFn receives grouped (de)serialization failures together
// with the format that was attempted.
type ParseErrorFn func(format Format, err error)

// Codec wraps a serializer with the total-failure policy the
// orchestrator relies on: deserialization never fails outward (it
// yields an empty state), serialization failures yield an empty
// payload, and both are routed through the error callback.
type Codec struct {
	serializer Serializer
	onError    ParseErrorFn
}

func NewCodec(s Serializer, onError ParseErrorFn) Codec {
	return Codec{serializer: s, onError: onError}
}

// Format returns the wrapped serializer's format.
func (c Codec) Format() Format { return c.serializer.Format() }

// Serialize renders the state, returning "" on failure.
func (c Codec) Serialize(fs types.FilterState) string {
	out, err := c.serializer.Serialize(fs)
	if err != nil {
		c.report(c.serializer.Format(), err)
		return ""
	}
	return out
}

// Deserialize decodes the state, returning an empty FilterState on
// failure. Grouped deserialization is always total.
func (c Codec) Deserialize(raw string) types.FilterState {
	fs, err := c.serializer.Deserialize(raw)
	if err != nil {
		c.report(c.serializer.Format(), err)
		return types.FilterState{}
	}
	if fs == nil {
		return types.FilterState{}
	}
	return fs
}

func (c Codec) report(format Format, err error) {
	if c.onError != nil {
		c.onError(format, err)
	}
}
