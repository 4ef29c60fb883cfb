package matrix

import (
	"bytes"
	"fmt"
	"strconv"
)

const (
	keyPrecomputedMeans = "precomputedMeans"
	keyMinCommon        = "minCommonRatedMovies"
)

// Header is the two-line preamble of a matrix file.
type Header struct {
	N                int  `json:"n"`
	PrecomputedMeans bool `json:"precomputed_means"`
	MinCommonItems   int  `json:"min_common_items"`
}

// AppendTo appends both header lines, each ending in '\n'.
func (h Header) AppendTo(dst []byte) []byte {
	dst = strconv.AppendInt(dst, int64(h.N), 10)
	dst = append(dst, '\n')
	dst = append(dst, keyPrecomputedMeans+"="...)
	dst = strconv.AppendBool(dst, h.PrecomputedMeans)
	dst = append(dst, ","+keyMinCommon+"="...)
	dst = strconv.AppendInt(dst, int64(h.MinCommonItems), 10)
	return append(dst, '\n')
}

// ParseHeader parses the two header lines, without their line terminators.
// Both metadata keys must be present; their order does not matter.
func ParseHeader(count, meta []byte) (Header, error) {
	var h Header

	n, err := strconv.Atoi(string(bytes.TrimSpace(count)))
	if err != nil || n < 0 {
		return h, fmt.Errorf("%w: user count %q", ErrMalformedHeader, count)
	}
	h.N = n

	var sawMeans, sawMin bool
	for _, field := range bytes.Split(bytes.TrimSpace(meta), []byte{','}) {
		key, value, ok := bytes.Cut(field, []byte{'='})
		if !ok {
			return h, fmt.Errorf("%w: field %q has no value", ErrMalformedHeader, field)
		}
		switch string(key) {
		case keyPrecomputedMeans:
			b, err := strconv.ParseBool(string(value))
			if err != nil {
				return h, fmt.Errorf("%w: %s=%q", ErrMalformedHeader, key, value)
			}
			h.PrecomputedMeans = b
			sawMeans = true
		case keyMinCommon:
			k, err := strconv.Atoi(string(value))
			if err != nil || k < 1 {
				return h, fmt.Errorf("%w: %s=%q", ErrMalformedHeader, key, value)
			}
			h.MinCommonItems = k
			sawMin = true
		}
	}

	if !sawMeans || !sawMin {
		return h, fmt.Errorf("%w: metadata %q lacks %s or %s", ErrMalformedHeader, meta, keyPrecomputedMeans, keyMinCommon)
	}
	return h, nil
}
