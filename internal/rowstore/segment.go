package rowstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/corrmatrix/internal/hash"
)

// Compression selects how spill segments are compressed.
type Compression uint8

const (
	// CompressionNone stores segments as raw little-endian int16 values.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio, slower).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps "none", "lz4" and "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown spill compression %q", s)
	}
}

// ErrCorruptSegment is returned when a spill segment fails validation.
var ErrCorruptSegment = errors.New("corrupt spill segment")

// Segment frame layout:
//
//	[0:2]   magic 'C','S'
//	[2]     compression
//	[3]     reserved
//	[4:8]   value count (uint32)
//	[8:12]  payload length (uint32)
//	[12:16] CRC32C of the payload
//	[16:]   payload
const (
	frameHeaderSize = 16
	magic0          = 'C'
	magic1          = 'S'
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// appendSegment encodes vals as one frame and appends it to dst.
// A payload that does not shrink under compression is stored raw.
func appendSegment(dst []byte, vals []int16, c Compression) ([]byte, error) {
	raw := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v))
	}

	payload, used, err := compressPayload(raw, c)
	if err != nil {
		return nil, err
	}

	var hdr [frameHeaderSize]byte
	hdr[0], hdr[1] = magic0, magic1
	hdr[2] = byte(used)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(vals)))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[12:], hash.CRC32C(payload))

	dst = append(dst, hdr[:]...)
	return append(dst, payload...), nil
}

func compressPayload(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, CompressionNone, nil
	}

	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 || n >= len(raw) {
			return raw, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		out := enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
		if len(out) >= len(raw) {
			return raw, CompressionNone, nil
		}
		return out, CompressionZSTD, nil
	default:
		return nil, 0, fmt.Errorf("unknown spill compression %d", uint8(c))
	}
}

// decodeSegments verifies every frame in data and appends the decoded
// values to dst.
func decodeSegments(data []byte, dst []int16) ([]int16, error) {
	off := 0
	for off < len(data) {
		if len(data)-off < frameHeaderSize {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrCorruptSegment, off)
		}
		hdr := data[off : off+frameHeaderSize]
		if hdr[0] != magic0 || hdr[1] != magic1 {
			return nil, fmt.Errorf("%w: bad magic at offset %d", ErrCorruptSegment, off)
		}
		c := Compression(hdr[2])
		count := int(binary.LittleEndian.Uint32(hdr[4:]))
		plen := int(binary.LittleEndian.Uint32(hdr[8:]))
		sum := binary.LittleEndian.Uint32(hdr[12:])

		off += frameHeaderSize
		if plen < 0 || len(data)-off < plen {
			return nil, fmt.Errorf("%w: truncated payload at offset %d", ErrCorruptSegment, off)
		}
		payload := data[off : off+plen]
		off += plen

		if hash.CRC32C(payload) != sum {
			return nil, fmt.Errorf("%w: checksum mismatch at offset %d", ErrCorruptSegment, off-plen)
		}

		raw, err := decompressPayload(payload, c, 2*count)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			dst = append(dst, int16(binary.LittleEndian.Uint16(raw[2*i:])))
		}
	}
	return dst, nil
}

func decompressPayload(payload []byte, c Compression, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(payload) != size {
			return nil, fmt.Errorf("%w: raw payload is %d bytes, want %d", ErrCorruptSegment, len(payload), size)
		}
		return payload, nil
	case CompressionLZ4:
		raw := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptSegment, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptSegment)
		}
		return raw, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		raw, err := dec.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptSegment, err)
		}
		if len(raw) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptSegment)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorruptSegment, uint8(c))
	}
}
