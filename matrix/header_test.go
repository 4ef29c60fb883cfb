package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_AppendTo(t *testing.T) {
	h := Header{N: 42, PrecomputedMeans: true, MinCommonItems: 3}
	assert.Equal(t, "42\nprecomputedMeans=true,minCommonRatedMovies=3\n", string(h.AppendTo(nil)))
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader([]byte("42"), []byte("minCommonRatedMovies=3,precomputedMeans=false"))
	require.NoError(t, err)
	assert.Equal(t, Header{N: 42, MinCommonItems: 3}, h)
}

func TestParseHeader_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		count string
		meta  string
	}{
		{"non-numeric count", "abc", "precomputedMeans=false,minCommonRatedMovies=1"},
		{"negative count", "-1", "precomputedMeans=false,minCommonRatedMovies=1"},
		{"missing min common", "3", "precomputedMeans=false"},
		{"missing means", "3", "minCommonRatedMovies=1"},
		{"bad bool", "3", "precomputedMeans=maybe,minCommonRatedMovies=1"},
		{"zero threshold", "3", "precomputedMeans=false,minCommonRatedMovies=0"},
		{"no value", "3", "precomputedMeans,minCommonRatedMovies=1"},
		{"empty", "3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader([]byte(tt.count), []byte(tt.meta))
			assert.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}
