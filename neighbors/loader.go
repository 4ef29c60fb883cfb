package neighbors

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/corrmatrix/blobstore"
	"github.com/hupe1980/corrmatrix/codec"
	"github.com/hupe1980/corrmatrix/internal/mmap"
	"github.com/hupe1980/corrmatrix/matrix"
)

var (
	// ErrInvalidK is returned for a neighbor count below 1.
	ErrInvalidK = errors.New("neighbor count k must be at least 1")

	// ErrMalformedHeader is returned when the matrix preamble cannot be parsed.
	ErrMalformedHeader = matrix.ErrMalformedHeader
)

const (
	readBufferSize = 1 << 20

	// maxPrealloc bounds the list slice allocated from the header count.
	maxPrealloc = 1 << 16
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// LoadFile memory-maps the matrix at path and loads it.
func LoadFile(path string, k int) (*Table, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = m.Close() }()
	_ = m.Advise(mmap.AccessSequential)

	return Load(bytes.NewReader(m.Bytes()), k)
}

// LoadBlob loads the matrix stored under name.
func LoadBlob(ctx context.Context, store blobstore.BlobStore, name string, k int) (*Table, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	r, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return Load(r, k)
}

// Load reads a matrix from r and keeps the k most similar peers per user.
func Load(r io.Reader, k int) (*Table, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}

	br := bufio.NewReaderSize(r, readBufferSize)
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		br = bufio.NewReaderSize(dec, readBufferSize)
	}

	lr := &lineReader{r: br}

	count, err := lr.next()
	if err != nil {
		return nil, headerError(err)
	}
	count = bytes.Clone(count)
	meta, err := lr.next()
	if err != nil {
		return nil, headerError(err)
	}
	h, err := matrix.ParseHeader(count, meta)
	if err != nil {
		return nil, err
	}

	// N is untrusted until the rows are read.
	t := &Table{
		Lists:   make([]List, 0, min(h.N, maxPrealloc)),
		Meta:    h,
		K:       k,
		covered: roaring.New(),
	}

	var scratch []Entry
	for i := range h.N {
		line, err := lr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: got %d rows, want %d", codec.ErrMalformed, i, h.N)
			}
			return nil, err
		}

		scratch = scratch[:0]
		n, err := codec.DecodeRow(line, func(col int, q int16) {
			if v, ok := codec.Dequantize(q); ok {
				scratch = append(scratch, Entry{Peer: col, Value: v})
			}
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if n != h.N {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", codec.ErrMalformed, i, n, h.N)
		}

		list := topK(scratch, k)
		t.Lists = append(t.Lists, list)
		if len(list) > 0 {
			t.covered.Add(uint32(i))
		}
	}

	if _, err := lr.next(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: more than %d rows", codec.ErrMalformed, h.N)
	}
	return t, nil
}

// topK sorts entries by value descending, keeping column order among ties,
// and copies out the first k.
func topK(entries []Entry, k int) List {
	if len(entries) == 0 {
		return List{}
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	})
	return List(slices.Clone(entries[:min(k, len(entries))]))
}

func headerError(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: truncated", ErrMalformedHeader)
	}
	return err
}

// lineReader yields lines without their terminator. A final line without
// '\n' is returned as is. Lines may exceed the bufio buffer.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func (l *lineReader) next() ([]byte, error) {
	line, err := l.r.ReadSlice('\n')
	if err == nil {
		return line[:len(line)-1], nil
	}

	l.buf = append(l.buf[:0], line...)
	for errors.Is(err, bufio.ErrBufferFull) {
		line, err = l.r.ReadSlice('\n')
		l.buf = append(l.buf, line...)
	}
	switch {
	case err == nil:
		return l.buf[:len(l.buf)-1], nil
	case errors.Is(err, io.EOF) && len(l.buf) > 0:
		return l.buf, nil
	}
	return nil, err
}
