// Package lookup implements the dense item→rating scratch buffer used to
// intersect two users' ratings in time proportional to one user's list.
//
// The buffer is filled once with Unset and never cleared in full again.
// Load writes the current user's ratings; Reset must be called with the same
// ratings before the next Load so that exactly the touched cells return to
// Unset. Skipping a Reset silently corrupts every later correlation, which is
// why Load refuses to run on a dirty buffer.
package lookup

import (
	"errors"
	"fmt"

	"github.com/hupe1980/corrmatrix/ratings"
)

// Unset marks an empty cell. Ratings are never negative.
const Unset float32 = -1

var (
	// ErrDirty is returned by Load when the previous user was not reset.
	ErrDirty = errors.New("lookup buffer was not reset")

	// ErrInvalidItem is returned by Load for a negative item id.
	ErrInvalidItem = errors.New("invalid item id")
)

// Buffer is a reusable dense lookup table indexed by item id.
// It is not safe for concurrent use.
type Buffer struct {
	cells []float32
	dirty bool
}

// New allocates a buffer covering item ids 0..maxItemID. A negative
// maxItemID yields an empty buffer.
func New(maxItemID int) *Buffer {
	cells := make([]float32, max(maxItemID+1, 0))
	for i := range cells {
		cells[i] = Unset
	}
	return &Buffer{cells: cells}
}

// Load stores rs in the buffer. Items beyond the buffer are ignored. A
// negative item id fails the whole load and leaves the buffer clean.
func (b *Buffer) Load(rs []ratings.Rating) error {
	if b.dirty {
		return ErrDirty
	}
	for i, r := range rs {
		if r.ItemID < 0 {
			b.Reset(rs[:i])
			return fmt.Errorf("%w: %d", ErrInvalidItem, r.ItemID)
		}
		if r.ItemID < len(b.cells) {
			b.cells[r.ItemID] = r.Value
		}
	}
	b.dirty = true
	return nil
}

// Reset restores the cells touched by rs to Unset.
func (b *Buffer) Reset(rs []ratings.Rating) {
	for _, r := range rs {
		if r.ItemID >= 0 && r.ItemID < len(b.cells) {
			b.cells[r.ItemID] = Unset
		}
	}
	b.dirty = false
}

// Get returns the loaded rating for itemID.
func (b *Buffer) Get(itemID int) (float32, bool) {
	if itemID < 0 || itemID >= len(b.cells) {
		return Unset, false
	}
	v := b.cells[itemID]
	return v, v != Unset
}

// Len returns the number of cells.
func (b *Buffer) Len() int {
	return len(b.cells)
}

// Clean reports whether every cell is Unset. It scans the whole buffer and
// is meant for tests and debug assertions only.
func (b *Buffer) Clean() bool {
	for _, v := range b.cells {
		if v != Unset {
			return false
		}
	}
	return true
}
