package compression

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const zstdTag = "zstd:"

// zstdAlgorithm wraps a real compressor behind the same tagged-output
// contract as the bespoke algorithms. The binary zstd frame is wrapped
// in URL-safe base64 so the payload stays URL-clean. Encoder and
// decoder are created once and reused; EncodeAll/DecodeAll are safe for
// concurrent use.
type zstdAlgorithm struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdAlgorithm(level int) (*zstdAlgorithm, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &zstdAlgorithm{encoder: encoder, decoder: decoder}, nil
}

func (z *zstdAlgorithm) Name() string { return MethodZstd }
func (z *zstdAlgorithm) Tag() string  { return zstdTag }

func (z *zstdAlgorithm) Compress(s string) (string, error) {
	frame := z.encoder.EncodeAll([]byte(s), nil)
	return zstdTag + base64.RawURLEncoding.EncodeToString(frame), nil
}

func (z *zstdAlgorithm) Decompress(s string) (string, error) {
	payload := strings.TrimPrefix(s, zstdTag)
	frame, err := decodeURLBase64(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 wrapper: %w", err)
	}
	out, err := z.decoder.DecodeAll(frame, nil)
	if err != nil {
		return "", fmt.Errorf("invalid zstd frame: %w", err)
	}
	return string(out), nil
}
