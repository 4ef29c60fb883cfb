package rowstore

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	noisy := make([]int16, 4096)
	for i := range noisy {
		noisy[i] = int16(rng.Intn(20001) - 10000)
	}
	flat := make([]int16, 4096)
	for i := range flat {
		flat[i] = 5000
	}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var data []byte
			var err error
			data, err = appendSegment(data, noisy, c)
			require.NoError(t, err)
			data, err = appendSegment(data, flat, c)
			require.NoError(t, err)
			data, err = appendSegment(data, nil, c)
			require.NoError(t, err)

			got, err := decodeSegments(data, nil)
			require.NoError(t, err)
			assert.Equal(t, append(append([]int16{}, noisy...), flat...), got)
		})
	}
}

func TestSegmentCompressionShrinks(t *testing.T) {
	flat := make([]int16, 4096)

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		data, err := appendSegment(nil, flat, c)
		require.NoError(t, err)
		assert.Equal(t, byte(c), data[2])
		assert.Less(t, len(data), 2*len(flat))
	}
}

func TestSegmentIncompressibleStoredRaw(t *testing.T) {
	data, err := appendSegment(nil, []int16{1, -2, 3}, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, byte(CompressionNone), data[2])
	assert.Len(t, data, frameHeaderSize+6)
}

func TestSegmentCorruption(t *testing.T) {
	good, err := appendSegment(nil, []int16{1, 2, 3, 4}, CompressionNone)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"checksum", func(b []byte) []byte { b[len(b)-1] ^= 0xFF; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-2] }},
		{"truncated header", func(b []byte) []byte { return b[:frameHeaderSize-1] }},
		{"unknown compression", func(b []byte) []byte { b[2] = 9; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte{}, good...))
			_, err := decodeSegments(data, nil)
			assert.ErrorIs(t, err, ErrCorruptSegment)
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		c, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
	_, err := ParseCompression("snappy")
	assert.Error(t, err)
}
