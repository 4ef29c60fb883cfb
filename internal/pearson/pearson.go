// Package pearson computes Pearson correlations between two users' ratings
// over their commonly rated items.
//
// Both kernels take the first user's ratings through a loaded lookup.Buffer
// and scan the second user's list once, so a pair costs O(len(y)) instead of
// a set intersection.
package pearson

import (
	"math"

	"github.com/hupe1980/corrmatrix/internal/lookup"
	"github.com/hupe1980/corrmatrix/ratings"
)

// RawMoments correlates the loaded user X with y by accumulating n, ΣX, ΣY,
// ΣXY, ΣX² and ΣY² over common items:
//
//	r = (nΣXY − ΣXΣY) / (sqrt(nΣX² − (ΣX)²) · sqrt(nΣY² − (ΣY)²))
//
// ok is false when fewer than minCommon items are shared or either side has
// no variance.
func RawMoments(y []ratings.Rating, x *lookup.Buffer, minCommon int) (r float64, ok bool) {
	var n int
	var sumX, sumY, sumXX, sumYY, sumXY float64

	for _, rating := range y {
		xv, set := x.Get(rating.ItemID)
		if !set {
			continue
		}
		xf, yf := float64(xv), float64(rating.Value)

		sumX += xf
		sumY += yf
		sumXX += xf * xf
		sumYY += yf * yf
		sumXY += xf * yf
		n++
	}

	if n < minCommon || n == 0 {
		return 0, false
	}

	fn := float64(n)
	varX := fn*sumXX - sumX*sumX
	varY := fn*sumYY - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0, false
	}

	return finish(fn*sumXY-sumX*sumY, math.Sqrt(varX)*math.Sqrt(varY))
}

// PrecomputedMeans correlates the loaded user X with y using each user's
// mean over all of their ratings rather than over the common items:
//
//	r = Σ(x−meanX)(y−meanY) / sqrt(Σ(x−meanX)² · Σ(y−meanY)²)
func PrecomputedMeans(y []ratings.Rating, x *lookup.Buffer, minCommon int, meanX, meanY float64) (r float64, ok bool) {
	var n int
	var num, sumDX, sumDY float64

	for _, rating := range y {
		xv, set := x.Get(rating.ItemID)
		if !set {
			continue
		}
		dx := float64(xv) - meanX
		dy := float64(rating.Value) - meanY

		num += dx * dy
		sumDX += dx * dx
		sumDY += dy * dy
		n++
	}

	if n < minCommon || n == 0 {
		return 0, false
	}

	return finish(num, math.Sqrt(sumDX*sumDY))
}

func finish(num, den float64) (float64, bool) {
	if den == 0 || math.IsNaN(den) {
		return 0, false
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	// Rounding can push |r| marginally past 1.
	return max(-1, min(1, r)), true
}

// Means returns every user's mean rating, indexed by user index.
func Means(repo ratings.Repository) []float64 {
	users := repo.UserIDs()
	means := make([]float64, len(users))
	for i, id := range users {
		means[i] = ratings.UserMean(repo.RatingsOf(id))
	}
	return means
}

// Pair correlates two arbitrary rating lists with the raw-moments kernel.
// The shorter list is loaded into buf, which must be clean, and buf is
// reset before returning.
func Pair(x, y []ratings.Rating, buf *lookup.Buffer, minCommon int) (float64, bool, error) {
	if len(x) > len(y) {
		x, y = y, x
	}
	if err := buf.Load(x); err != nil {
		return 0, false, err
	}
	defer buf.Reset(x)

	r, ok := RawMoments(y, buf, minCommon)
	return r, ok, nil
}
