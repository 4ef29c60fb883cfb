package lookup

import (
	"testing"

	"github.com/hupe1980/corrmatrix/ratings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_LoadReset(t *testing.T) {
	b := New(7)
	assert.Equal(t, 8, b.Len())
	assert.True(t, b.Clean())

	x := []ratings.Rating{{ItemID: 1, Value: 3}, {ItemID: 3, Value: 4}, {ItemID: 4, Value: 2}}
	require.NoError(t, b.Load(x))

	v, ok := b.Get(3)
	assert.True(t, ok)
	assert.Equal(t, float32(4), v)

	_, ok = b.Get(2)
	assert.False(t, ok)
	_, ok = b.Get(100)
	assert.False(t, ok)
	_, ok = b.Get(-1)
	assert.False(t, ok)

	b.Reset(x)
	assert.True(t, b.Clean())
}

func TestBuffer_DirtyLoadRejected(t *testing.T) {
	b := New(3)
	x := []ratings.Rating{{ItemID: 0, Value: 1}}

	require.NoError(t, b.Load(x))
	assert.ErrorIs(t, b.Load(x), ErrDirty)

	b.Reset(x)
	assert.NoError(t, b.Load(x))
}

func TestBuffer_ZeroRatingIsSet(t *testing.T) {
	b := New(2)
	require.NoError(t, b.Load([]ratings.Rating{{ItemID: 2, Value: 0}}))

	v, ok := b.Get(2)
	assert.True(t, ok)
	assert.Equal(t, float32(0), v)
}

func TestBuffer_OutOfRangeIgnored(t *testing.T) {
	b := New(2)
	x := []ratings.Rating{{ItemID: 1, Value: 5}, {ItemID: 9, Value: 5}}
	require.NoError(t, b.Load(x))
	b.Reset(x)
	assert.True(t, b.Clean())
}

func TestBuffer_NegativeItemRejected(t *testing.T) {
	b := New(4)
	x := []ratings.Rating{{ItemID: 1, Value: 2}, {ItemID: 3, Value: 4}, {ItemID: -3, Value: 1}}

	err := b.Load(x)
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.True(t, b.Clean())

	y := []ratings.Rating{{ItemID: 2, Value: 1}}
	require.NoError(t, b.Load(y))
	b.Reset(y)
	assert.True(t, b.Clean())
}

func TestNew_NegativeMaxItem(t *testing.T) {
	b := New(-4)
	assert.Equal(t, 0, b.Len())
	assert.ErrorIs(t, b.Load([]ratings.Rating{{ItemID: -3, Value: 1}}), ErrInvalidItem)
}
