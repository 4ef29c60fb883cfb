package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/corrmatrix/ratings"
)

func TestReadRatings_Formats(t *testing.T) {
	input := `# MovieLens style
1::10::4::978300760
1::11::2.5::978300761

2	10	3
2	12	4.5	881250949
`
	repo, err := readRatings(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, repo.UserIDs())
	assert.Equal(t, []int{10, 11, 12}, repo.ItemIDs())
	assert.Equal(t, []ratings.Rating{{ItemID: 10, Value: 4}, {ItemID: 11, Value: 2.5}}, repo.RatingsOf(1))
	assert.Equal(t, []ratings.Rating{{ItemID: 10, Value: 3}, {ItemID: 12, Value: 4.5}}, repo.RatingsOf(2))
}

func TestReadRatings_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"too few fields", "1::10::4\n1::11\n", "line 2"},
		{"bad user", "x::10::4\n", "line 1"},
		{"bad item", "1\ty\t4\n", "line 1"},
		{"bad rating", "1::10::four\n", "line 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readRatings(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestReadRatings_InvalidValue(t *testing.T) {
	_, err := readRatings(strings.NewReader("1::10::-1\n"))
	assert.ErrorIs(t, err, ratings.ErrInvalidRating)
}
