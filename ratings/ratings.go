package ratings

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRating is returned for ratings that cannot be stored.
var ErrInvalidRating = errors.New("invalid rating")

// Rating is one user's rating of one item.
type Rating struct {
	ItemID int
	Value  float32
}

// Validate reports whether r can be stored. Values must be finite and
// non-negative; negative values are reserved by the lookup buffer.
func (r Rating) Validate() error {
	if r.ItemID < 0 {
		return fmt.Errorf("%w: negative item id %d", ErrInvalidRating, r.ItemID)
	}
	v := float64(r.Value)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: value %v for item %d", ErrInvalidRating, r.Value, r.ItemID)
	}
	return nil
}

// Repository exposes ordered users and items and each user's ratings.
//
// UserIDs and ItemIDs must be ascending and stable for the lifetime of a
// build; RatingsOf must return the same slice contents on every call.
type Repository interface {
	UserIDs() []int
	ItemIDs() []int
	RatingsOf(userID int) []Rating
	UserCount() int
	MeanRatingOf(itemID int) float64
}

// MaxItemID returns the largest item id in repo, or -1 if there are no items.
func MaxItemID(repo Repository) int {
	items := repo.ItemIDs()
	if len(items) == 0 {
		return -1
	}
	return items[len(items)-1]
}

// UserMean returns the mean of rs, or 0 for an empty list.
func UserMean(rs []Rating) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += float64(r.Value)
	}
	return sum / float64(len(rs))
}
