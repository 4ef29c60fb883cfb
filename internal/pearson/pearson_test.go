package pearson

import (
	"testing"

	"github.com/hupe1980/corrmatrix/internal/lookup"
	"github.com/hupe1980/corrmatrix/ratings"
	"github.com/hupe1980/corrmatrix/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rs(pairs ...float32) []ratings.Rating {
	out := make([]ratings.Rating, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, ratings.Rating{ItemID: int(pairs[i]), Value: pairs[i+1]})
	}
	return out
}

func TestRawMoments_CommonItemsOnly(t *testing.T) {
	x := rs(1, 3.0, 2, 4.0, 3, 2.0)
	y := rs(1, 3.0, 2, 4.0, 4, 5.0)

	buf := lookup.New(4)
	require.NoError(t, buf.Load(x))
	defer buf.Reset(x)

	// Common items {1,2} give samples (3,3),(4,4): a perfect correlation.
	r, ok := RawMoments(y, buf, 1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	// Only two common items exist.
	_, ok = RawMoments(y, buf, 3)
	assert.False(t, ok)
}

func TestRawMoments_ZeroVarianceUndefined(t *testing.T) {
	x := rs(1, 4.0, 2, 4.0, 3, 4.0)
	y := rs(1, 1.0, 2, 3.0, 3, 5.0)

	buf := lookup.New(3)
	require.NoError(t, buf.Load(x))
	defer buf.Reset(x)

	_, ok := RawMoments(y, buf, 1)
	assert.False(t, ok)

	_, ok = PrecomputedMeans(y, buf, 1, 4.0, 3.0)
	assert.False(t, ok)
}

func TestRawMoments_NoCommonItems(t *testing.T) {
	x := rs(1, 4.0)
	y := rs(2, 1.0)

	buf := lookup.New(2)
	require.NoError(t, buf.Load(x))
	defer buf.Reset(x)

	_, ok := RawMoments(y, buf, 1)
	assert.False(t, ok)
	_, ok = PrecomputedMeans(y, buf, 1, 4, 1)
	assert.False(t, ok)
}

func TestRawMoments_Negative(t *testing.T) {
	x := rs(1, 1.0, 2, 2.0, 3, 3.0)
	y := rs(1, 3.0, 2, 2.0, 3, 1.0)

	buf := lookup.New(3)
	require.NoError(t, buf.Load(x))
	defer buf.Reset(x)

	r, ok := RawMoments(y, buf, 1)
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)
	assert.GreaterOrEqual(t, r, -1.0)
}

func TestKernels_MatchReference(t *testing.T) {
	rng := testutil.NewRNG(7)
	const items = 60

	buf := lookup.New(items)
	for trial := 0; trial < 200; trial++ {
		x := rng.Ratings(items, 0.4)
		y := rng.Ratings(items, 0.4)
		mx, my := ratings.UserMean(x), ratings.UserMean(y)

		require.NoError(t, buf.Load(x))

		want, wantOK := testutil.ExactPearson(x, y, 3)
		got, gotOK := RawMoments(y, buf, 3)
		require.Equal(t, wantOK, gotOK, "trial %d", trial)
		if wantOK {
			assert.InDelta(t, want, got, 1e-9, "trial %d", trial)
		}

		want, wantOK = testutil.ExactPearsonWithMeans(x, y, 3, mx, my)
		got, gotOK = PrecomputedMeans(y, buf, 3, mx, my)
		require.Equal(t, wantOK, gotOK, "trial %d", trial)
		if wantOK {
			assert.InDelta(t, want, got, 1e-9, "trial %d", trial)
		}

		buf.Reset(x)
		require.True(t, buf.Clean(), "trial %d", trial)
	}
}

func TestPair_Symmetric(t *testing.T) {
	x := rs(1, 5.0, 2, 3.0, 5, 1.0, 7, 4.0)
	y := rs(1, 4.0, 2, 2.5, 7, 4.5)

	buf := lookup.New(7)

	xy, ok, err := Pair(x, y, buf, 1)
	require.NoError(t, err)
	require.True(t, ok)

	yx, ok, err := Pair(y, x, buf, 1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, xy, yx, 1e-12)
	assert.True(t, buf.Clean())

	// A dirty buffer is refused.
	require.NoError(t, buf.Load(x))
	_, _, err = Pair(x, y, buf, 1)
	assert.ErrorIs(t, err, lookup.ErrDirty)
}

func TestMeans(t *testing.T) {
	repo := ratings.NewMemoryRepository()
	require.NoError(t, repo.Add(5, rs(1, 2.0, 2, 4.0)...))
	require.NoError(t, repo.Add(3, rs(1, 5.0)...))

	assert.Equal(t, []float64{5.0, 3.0}, Means(repo))
}
