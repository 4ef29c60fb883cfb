package rowstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/corrmatrix/internal/fs"
	"github.com/hupe1980/corrmatrix/internal/ioerr"
	"github.com/hupe1980/corrmatrix/internal/mmap"
	"github.com/hupe1980/corrmatrix/internal/resource"
)

// DefaultPrefix is the file name prefix of spill files.
const DefaultPrefix = "corrmatrix-spill-"

var (
	// ErrDrained is returned by Next once every value of a row was read.
	ErrDrained = errors.New("row drained")

	// ErrNotDrained is returned by Destroy for a row with unread values.
	ErrNotDrained = errors.New("row not drained")

	// ErrRowFull is returned when appending past a row's eventual length.
	ErrRowFull = errors.New("row full")

	// ErrRowDestroyed is returned for any access to a destroyed row.
	ErrRowDestroyed = errors.New("row destroyed")

	// ErrReading is returned by Append once draining of the row has begun.
	ErrReading = errors.New("row is being drained")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("row store closed")
)

// Event describes one spill or load.
type Event struct {
	Row      int
	Elements int
	Bytes    int64
	Duration time.Duration
}

// Options configures a Store.
type Options struct {
	// InitialChunk is the capacity each row tries to reserve up front.
	InitialChunk int

	// Lengths overrides the eventual length of each row. Row r defaults to r.
	Lengths []int

	// SpillDir is where spill files are created. Defaults to os.TempDir().
	// New removes every prefixed spill file it finds there, so two stores
	// must not share a SpillDir and Prefix while both are open.
	SpillDir string

	// Prefix is the spill file name prefix.
	Prefix string

	// Compression applies to spill segments.
	Compression Compression

	// FS is the file system used for spill files. Spill files on the local
	// file system are loaded through mmap; any other FS is read directly.
	FS fs.FileSystem

	// IOContext bounds rate-limited spill IO.
	IOContext context.Context

	Logger *slog.Logger

	// OnSpill and OnLoad are called after each successful spill or load.
	OnSpill func(Event)
	OnLoad  func(Event)
}

// DefaultOptions are the options used by New.
var DefaultOptions = Options{
	InitialChunk: 10000,
	Prefix:       DefaultPrefix,
	Compression:  CompressionNone,
}

// Stats summarizes spill activity.
type Stats struct {
	Rows            int   `json:"rows"`
	SpilledRows     int   `json:"spilled_rows"`
	Spills          int64 `json:"spills"`
	SpilledElements int64 `json:"spilled_elements"`
	SpilledBytes    int64 `json:"spilled_bytes"`
	Loads           int64 `json:"loads"`
	PeakResident    int64 `json:"peak_resident"`
}

type row struct {
	buf      []int16 // resident values; cap(buf) == reserved
	reserved int64
	eventual int
	appended int
	flushed  int
	read     int
	loaded   []int16 // decoded spill file, set on first read
	pending  bool    // spill file exists on disk
	draining bool
	gone     bool
}

// Store owns one buffer per row.
type Store struct {
	opts   Options
	budget *resource.Controller
	rows   []row

	spilled *roaring.Bitmap
	stats   Stats
	scratch []byte
	closed  bool
}

// New creates a store for n rows drawing on budget. A nil budget is
// unlimited. Stale spill files left in SpillDir by earlier runs are removed.
func New(n int, budget *resource.Controller, optFns ...func(o *Options)) (*Store, error) {
	if n < 0 {
		return nil, fmt.Errorf("rowstore: negative row count %d", n)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.InitialChunk < 0 {
		opts.InitialChunk = 0
	}
	if opts.SpillDir == "" {
		opts.SpillDir = os.TempDir()
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	if opts.IOContext == nil {
		opts.IOContext = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Lengths != nil && len(opts.Lengths) != n {
		return nil, fmt.Errorf("rowstore: %d lengths for %d rows", len(opts.Lengths), n)
	}

	if err := opts.FS.MkdirAll(opts.SpillDir, 0o755); err != nil {
		return nil, ioerr.New(ioerr.SiteSpill, -1, opts.SpillDir, err)
	}

	removed, err := CleanupStale(opts.FS, opts.SpillDir, opts.Prefix)
	if err != nil {
		opts.Logger.Warn("stale spill cleanup incomplete", "dir", opts.SpillDir, "removed", removed, "error", err)
	} else if removed > 0 {
		opts.Logger.Info("removed stale spill files", "dir", opts.SpillDir, "count", removed)
	}

	s := &Store{
		opts:    opts,
		budget:  budget,
		rows:    make([]row, n),
		spilled: roaring.New(),
	}
	s.stats.Rows = n

	for r := range s.rows {
		eventual := r
		if opts.Lengths != nil {
			eventual = opts.Lengths[r]
		}
		s.rows[r].eventual = eventual

		want := int64(min(eventual, opts.InitialChunk))
		if want > 0 && budget.TryAcquire(want) {
			s.rows[r].buf = make([]int16, 0, want)
			s.rows[r].reserved = want
		}
	}
	opts.Logger.Debug("row store ready", "rows", n, "budget_elements", budget.Limit(), "reserved", budget.Used())

	return s, nil
}

// Path returns the spill file path of row r.
func (s *Store) Path(r int) string {
	return filepath.Join(s.opts.SpillDir, s.opts.Prefix+strconv.Itoa(r)+".tmp")
}

func (s *Store) get(r int) (*row, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if r < 0 || r >= len(s.rows) {
		return nil, fmt.Errorf("rowstore: row %d out of range [0,%d)", r, len(s.rows))
	}
	rw := &s.rows[r]
	if rw.gone {
		return nil, fmt.Errorf("%w: %d", ErrRowDestroyed, r)
	}
	return rw, nil
}

// Append adds v to the end of row r.
func (s *Store) Append(r int, v int16) error {
	rw, err := s.get(r)
	if err != nil {
		return err
	}
	if rw.draining {
		return fmt.Errorf("%w: %d", ErrReading, r)
	}
	if rw.appended >= rw.eventual {
		return fmt.Errorf("%w: row %d holds %d values", ErrRowFull, r, rw.eventual)
	}

	if len(rw.buf) == cap(rw.buf) {
		if !s.grow(rw) {
			if len(rw.buf) == 0 {
				// Nothing resident and no budget: spill the value itself.
				if err := s.spill(r, rw, []int16{v}); err != nil {
					return err
				}
				rw.appended++
				return nil
			}
			if err := s.spill(r, rw, rw.buf); err != nil {
				return err
			}
			rw.buf = rw.buf[:0]
		}
	}

	rw.buf = append(rw.buf, v)
	rw.appended++
	return nil
}

// grow enlarges the resident buffer as far as the budget and the row's
// remaining length allow.
func (s *Store) grow(rw *row) bool {
	// Grow to min(eventual-flushed, reserved+available).
	delta := min(int64(rw.eventual-rw.flushed)-rw.reserved, s.budget.Available())
	if delta <= 0 {
		return false
	}

	got := s.budget.AcquireUpTo(delta)
	if got <= 0 {
		return false
	}

	buf := make([]int16, len(rw.buf), rw.reserved+got)
	copy(buf, rw.buf)
	rw.buf = buf
	rw.reserved += got
	return true
}

func (s *Store) spill(r int, rw *row, vals []int16) error {
	start := time.Now()
	path := s.Path(r)

	frame, err := appendSegment(s.scratch[:0], vals, s.opts.Compression)
	if err != nil {
		return ioerr.New(ioerr.SiteSpill, r, path, err)
	}
	s.scratch = frame

	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !rw.pending {
		flag |= os.O_TRUNC
	}
	f, err := s.opts.FS.OpenFile(path, flag, 0o600)
	if err != nil {
		return ioerr.New(ioerr.SiteSpill, r, path, err)
	}
	rw.pending = true

	w := resource.NewRateLimitedWriter(s.opts.IOContext, f, s.budget)
	if _, err := w.Write(frame); err != nil {
		_ = f.Close()
		return ioerr.New(ioerr.SiteSpill, r, path, err)
	}
	if err := f.Close(); err != nil {
		return ioerr.New(ioerr.SiteSpill, r, path, err)
	}

	rw.flushed += len(vals)
	s.spilled.Add(uint32(r))
	s.stats.Spills++
	s.stats.SpilledElements += int64(len(vals))
	s.stats.SpilledBytes += int64(len(frame))

	ev := Event{Row: r, Elements: len(vals), Bytes: int64(len(frame)), Duration: time.Since(start)}
	s.opts.Logger.Debug("spilled row segment", "row", r, "elements", ev.Elements, "bytes", ev.Bytes, "flushed", rw.flushed)
	if s.opts.OnSpill != nil {
		s.opts.OnSpill(ev)
	}
	return nil
}

// Next returns the next value of row r in append order.
func (s *Store) Next(r int) (int16, error) {
	rw, err := s.get(r)
	if err != nil {
		return 0, err
	}
	if rw.read >= rw.appended {
		return 0, fmt.Errorf("%w: %d", ErrDrained, r)
	}
	rw.draining = true

	if rw.read < rw.flushed {
		if rw.loaded == nil {
			if err := s.load(r, rw); err != nil {
				return 0, err
			}
		}
		v := rw.loaded[rw.read]
		rw.read++
		if rw.read == rw.flushed {
			rw.loaded = nil
		}
		return v, nil
	}

	v := rw.buf[rw.read-rw.flushed]
	rw.read++
	return v, nil
}

func (s *Store) load(r int, rw *row) error {
	start := time.Now()
	path := s.Path(r)

	data, release, err := s.readSpill(path)
	if err != nil {
		return ioerr.New(ioerr.SiteLoad, r, path, err)
	}
	vals, err := decodeSegments(data, make([]int16, 0, rw.flushed))
	size := int64(len(data))
	release()
	if err != nil {
		return ioerr.New(ioerr.SiteLoad, r, path, err)
	}
	if len(vals) != rw.flushed {
		return ioerr.New(ioerr.SiteLoad, r, path,
			fmt.Errorf("%w: %d values on disk, want %d", ErrCorruptSegment, len(vals), rw.flushed))
	}
	rw.loaded = vals

	if err := s.opts.FS.Remove(path); err != nil {
		// Close retries the removal.
		s.opts.Logger.Warn("failed to remove spill file", "row", r, "path", path, "error", err)
	} else {
		rw.pending = false
	}
	s.stats.Loads++

	ev := Event{Row: r, Elements: len(vals), Bytes: size, Duration: time.Since(start)}
	s.opts.Logger.Debug("loaded spill file", "row", r, "elements", ev.Elements, "bytes", ev.Bytes)
	if s.opts.OnLoad != nil {
		s.opts.OnLoad(ev)
	}
	return nil
}

// readSpill returns the spill file contents and a function releasing them.
func (s *Store) readSpill(path string) ([]byte, func(), error) {
	if _, local := s.opts.FS.(fs.LocalFS); local {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, nil, err
		}
		_ = m.Advise(mmap.AccessSequential)
		return m.Bytes(), func() { _ = m.Close() }, nil
	}

	f, err := s.opts.FS.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(resource.NewRateLimitedReader(s.opts.IOContext, f, s.budget))
	if err != nil {
		return nil, nil, err
	}
	return data, func() {}, nil
}

// Destroy frees row r. Every appended value must have been read.
func (s *Store) Destroy(r int) error {
	rw, err := s.get(r)
	if err != nil {
		return err
	}
	if rw.read < rw.appended {
		return fmt.Errorf("%w: row %d has %d of %d values unread", ErrNotDrained, r, rw.appended-rw.read, rw.appended)
	}

	s.budget.Release(rw.reserved)
	if rw.pending {
		if err := s.opts.FS.Remove(s.Path(r)); err == nil || errors.Is(err, os.ErrNotExist) {
			rw.pending = false
		}
	}
	*rw = row{gone: true, pending: rw.pending}
	return nil
}

// Len returns the number of values appended to row r so far.
func (s *Store) Len(r int) int {
	if r < 0 || r >= len(s.rows) {
		return 0
	}
	return s.rows[r].appended
}

// resident returns the number of values of row r held in memory.
func (s *Store) resident(r int) int {
	if r < 0 || r >= len(s.rows) {
		return 0
	}
	return len(s.rows[r].buf)
}

// Spilled returns a copy of the set of rows that spilled at least once.
func (s *Store) Spilled() *roaring.Bitmap {
	return s.spilled.Clone()
}

// Stats returns spill statistics. PeakResident is the peak of the budget,
// which covers every store sharing it.
func (s *Store) Stats() Stats {
	st := s.stats
	st.SpilledRows = int(s.spilled.GetCardinality())
	st.PeakResident = s.budget.Peak()
	return st
}

// Close releases every row's budget and removes all remaining spill files.
// It is idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for r := range s.rows {
		rw := &s.rows[r]
		s.budget.Release(rw.reserved)
		rw.reserved = 0
		if rw.pending {
			if err := s.opts.FS.Remove(s.Path(r)); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		*rw = row{gone: true}
	}
	return errors.Join(errs...)
}
