package compression

import (
	"encoding/base64"
	"strings"
)

const lzTag = "lz:"

// Dictionary substitution over bytes. Both sides derive an identical
// rolling dictionary of two-byte substrings from the already consumed
// text, so no dictionary is transmitted. Codes occupy 0x80..0xFF
// exactly, so the cap must not exceed 128; literal bytes colliding
// with that range are escaped. The token stream is wrapped in URL-safe
// base64.
const (
	lzCodeBase   = 0x80
	lzDictCap    = 0x100 - lzCodeBase
	lzEscapeByte = 0x1B
)

type lzAlgorithm struct{}

func (lzAlgorithm) Name() string { return MethodLZ }
func (lzAlgorithm) Tag() string  { return lzTag }

// lzDict maps a byte pair to its single-byte code. Registration order
// determines code assignment, which both sides replay identically.
type lzDict struct {
	codes map[[2]byte]byte
	pairs [][2]byte
}

func newLzDict() *lzDict {
	return &lzDict{codes: make(map[[2]byte]byte, lzDictCap)}
}

func (d *lzDict) register(a, b byte) {
	if len(d.pairs) >= lzDictCap {
		return
	}
	pair := [2]byte{a, b}
	if _, ok := d.codes[pair]; ok {
		return
	}
	d.codes[pair] = byte(lzCodeBase + len(d.pairs))
	d.pairs = append(d.pairs, pair)
}

func (lzAlgorithm) Compress(s string) (string, error) {
	in := []byte(s)
	dict := newLzDict()
	out := make([]byte, 0, len(in))

	reg := 1
	for i := 0; i < len(in); {
		// All byte pairs of the consumed prefix are registered before
		// any match decision, mirroring the decompressor exactly.
		for ; reg < i; reg++ {
			dict.register(in[reg-1], in[reg])
		}

		if i+1 < len(in) {
			if code, ok := dict.codes[[2]byte{in[i], in[i+1]}]; ok {
				out = append(out, code)
				i += 2
				continue
			}
		}

		b := in[i]
		if b >= lzCodeBase || b == lzEscapeByte {
			out = append(out, lzEscapeByte, b)
		} else {
			out = append(out, b)
		}
		i++
	}

	return lzTag + base64.RawURLEncoding.EncodeToString(out), nil
}

// Decompress reverses the substitution. Decoding is intentionally
// lenient at this inner layer: any malformed payload yields the input
// unmodified instead of an error.
func (lzAlgorithm) Decompress(s string) (string, error) {
	payload := strings.TrimPrefix(s, lzTag)
	tokens, err := decodeURLBase64(payload)
	if err != nil {
		return s, nil
	}

	dict := newLzDict()
	out := make([]byte, 0, len(tokens)*2)

	reg := 1
	for i := 0; i < len(tokens); i++ {
		for ; reg < len(out); reg++ {
			dict.register(out[reg-1], out[reg])
		}

		t := tokens[i]
		switch {
		case t == lzEscapeByte:
			if i+1 >= len(tokens) {
				return s, nil
			}
			i++
			out = append(out, tokens[i])
		case t >= lzCodeBase:
			idx := int(t - lzCodeBase)
			if idx >= len(dict.pairs) {
				return s, nil
			}
			pair := dict.pairs[idx]
			out = append(out, pair[0], pair[1])
		default:
			out = append(out, t)
		}
	}

	return string(out), nil
}
