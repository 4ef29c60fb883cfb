package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/corrmatrix/ratings"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Int16 returns a pseudo-random quantized correlation in [-10000, 10000].
func (r *RNG) Int16() int16 {
	return int16(r.Intn(20001) - 10000)
}

// Rating returns a rating on the 0.5..5.0 half-star scale.
func (r *RNG) Rating() float32 {
	return float32(r.Intn(10)+1) / 2
}

// Ratings returns one user's ratings: each item in 0..items-1 is rated with
// the given probability. Items are in ascending order.
func (r *RNG) Ratings(items int, density float64) []ratings.Rating {
	var rs []ratings.Rating
	for item := 0; item < items; item++ {
		if r.Float64() < density {
			rs = append(rs, ratings.Rating{ItemID: item, Value: r.Rating()})
		}
	}
	return rs
}

// Repository builds a repository with the given number of users (ids
// 1, 3, 5, ... to keep ids distinct from indexes). Every user rates at least
// one item.
func (r *RNG) Repository(users, items int, density float64) *ratings.MemoryRepository {
	repo := ratings.NewMemoryRepository()
	for u := 0; u < users; u++ {
		rs := r.Ratings(items, density)
		if len(rs) == 0 {
			rs = []ratings.Rating{{ItemID: r.Intn(items), Value: r.Rating()}}
		}
		if err := repo.Add(2*u+1, rs...); err != nil {
			panic(err)
		}
	}
	return repo
}

// Common returns the co-rated values of x and y as parallel slices.
func Common(x, y []ratings.Rating) (xs, ys []float64) {
	byItem := make(map[int]float32, len(x))
	for _, rt := range x {
		byItem[rt.ItemID] = rt.Value
	}
	for _, rt := range y {
		if xv, ok := byItem[rt.ItemID]; ok {
			xs = append(xs, float64(xv))
			ys = append(ys, float64(rt.Value))
		}
	}
	return xs, ys
}

// ExactPearson computes the sample Pearson correlation of the co-rated items
// using two-pass centered sums.
func ExactPearson(x, y []ratings.Rating, minCommon int) (float64, bool) {
	xs, ys := Common(x, y)
	if len(xs) == 0 || len(xs) < minCommon {
		return 0, false
	}
	return centered(xs, ys, mean(xs), mean(ys))
}

// ExactPearsonWithMeans centers the co-rated values on the given means.
func ExactPearsonWithMeans(x, y []ratings.Rating, minCommon int, meanX, meanY float64) (float64, bool) {
	xs, ys := Common(x, y)
	if len(xs) == 0 || len(xs) < minCommon {
		return 0, false
	}
	return centered(xs, ys, meanX, meanY)
}

func centered(xs, ys []float64, mx, my float64) (float64, bool) {
	var num, dx2, dy2 float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		num += dx * dy
		dx2 += dx * dx
		dy2 += dy * dy
	}
	den := math.Sqrt(dx2 * dy2)
	if den == 0 {
		return 0, false
	}
	return max(-1, min(1, num/den)), true
}

func mean(v []float64) float64 {
	var s float64
	for _, f := range v {
		s += f
	}
	return s / float64(len(v))
}
