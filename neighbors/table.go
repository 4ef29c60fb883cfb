package neighbors

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/corrmatrix/matrix"
)

// Entry is one neighbor of a user.
type Entry struct {
	Peer  int     `json:"peer"`
	Value float64 `json:"value"`
}

// List is a neighbor list sorted by Value descending.
type List []Entry

// Consumer receives finished neighbor lists, typically a rating predictor.
type Consumer interface {
	Accept(userIndex int, externalID int, list List) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(userIndex int, externalID int, list List) error

// Accept calls f.
func (f ConsumerFunc) Accept(userIndex int, externalID int, list List) error {
	return f(userIndex, externalID, list)
}

// Table holds the top-K neighbor lists of every user of a matrix.
type Table struct {
	Lists []List
	Meta  matrix.Header
	K     int

	covered *roaring.Bitmap
}

// Len returns the number of users.
func (t *Table) Len() int {
	return len(t.Lists)
}

// Neighbors returns the list of user i, or nil when i is out of range.
func (t *Table) Neighbors(i int) List {
	if i < 0 || i >= len(t.Lists) {
		return nil
	}
	return t.Lists[i]
}

// Covered returns the set of users with at least one defined neighbor.
// The caller must not modify it.
func (t *Table) Covered() *roaring.Bitmap {
	return t.covered
}

// Deliver hands every list to c in user order. userIDs maps user index to
// external id and must have one entry per user.
func (t *Table) Deliver(c Consumer, userIDs []int) error {
	if len(userIDs) != len(t.Lists) {
		return fmt.Errorf("neighbors: %d user ids for %d users", len(userIDs), len(t.Lists))
	}
	for i, list := range t.Lists {
		if err := c.Accept(i, userIDs[i], list); err != nil {
			return fmt.Errorf("neighbors: deliver user %d: %w", userIDs[i], err)
		}
	}
	return nil
}
