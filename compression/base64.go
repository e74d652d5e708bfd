package compression

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const base64Tag = "b64:"

// base64Algorithm is the correctness baseline: always reversible,
// never reduces size. It is the lowest risk fallback and the
// unconditional choice when a caller forces a specific method.
type base64Algorithm struct{}

func (base64Algorithm) Name() string { return MethodBase64 }
func (base64Algorithm) Tag() string  { return base64Tag }

func (base64Algorithm) Compress(s string) (string, error) {
	return base64Tag + base64.RawURLEncoding.EncodeToString([]byte(s)), nil
}

func (base64Algorithm) Decompress(s string) (string, error) {
	payload := strings.TrimPrefix(s, base64Tag)
	out, err := decodeURLBase64(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	return string(out), nil
}

// decodeURLBase64 accepts URL-safe base64 with or without padding.
func decodeURLBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}
