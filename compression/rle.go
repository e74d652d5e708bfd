package compression

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const rleTag = "gz:"

// Run-length encoding. Runs of four or more identical bytes, and any
// run of the reserved escape byte, collapse into an escape triplet
// "@<count-base36><byte>". Counts are capped at 35 per triplet (one
// base36 digit); longer runs split into multiple triplets. The result
// is wrapped in URL-safe base64. The method keeps the historical name
// "gzip" on the wire even though it is plain RLE.
const (
	rleEscape   = '@'
	rleMinRun   = 4
	rleMaxCount = 35
)

type rleAlgorithm struct{}

func (rleAlgorithm) Name() string { return MethodRLE }
func (rleAlgorithm) Tag() string  { return rleTag }

func (rleAlgorithm) Compress(s string) (string, error) {
	in := []byte(s)
	out := make([]byte, 0, len(in))

	for i := 0; i < len(in); {
		b := in[i]
		run := 1
		for i+run < len(in) && in[i+run] == b {
			run++
		}

		remaining := run
		for remaining > 0 {
			chunk := remaining
			if chunk > rleMaxCount {
				chunk = rleMaxCount
			}
			if chunk >= rleMinRun || b == rleEscape {
				out = append(out, rleEscape, base36Digit(chunk), b)
			} else {
				for j := 0; j < chunk; j++ {
					out = append(out, b)
				}
			}
			remaining -= chunk
		}
		i += run
	}

	return rleTag + base64.RawURLEncoding.EncodeToString(out), nil
}

// Decompress expands escape triplets and passes other bytes through.
// Malformed payloads yield the input unmodified rather than an error.
func (rleAlgorithm) Decompress(s string) (string, error) {
	payload := strings.TrimPrefix(s, rleTag)
	in, err := decodeURLBase64(payload)
	if err != nil {
		return s, nil
	}

	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != rleEscape {
			out = append(out, in[i])
			continue
		}
		if i+2 >= len(in) {
			return s, nil
		}
		count, err := strconv.ParseUint(string(in[i+1]), 36, 8)
		if err != nil || count == 0 {
			return s, nil
		}
		b := in[i+2]
		for j := uint64(0); j < count; j++ {
			out = append(out, b)
		}
		i += 2
	}

	return string(out), nil
}

func base36Digit(n int) byte {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	return digits[n]
}
