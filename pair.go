package corrmatrix

import (
	"fmt"
	"slices"

	"github.com/hupe1980/corrmatrix/internal/lookup"
	"github.com/hupe1980/corrmatrix/internal/pearson"
	"github.com/hupe1980/corrmatrix/matrix"
	"github.com/hupe1980/corrmatrix/ratings"
)

// Correlation returns the raw-moments Pearson correlation of two users of
// repo, without building a matrix. ok is false when the correlation is
// undefined. Only WithMinCommonItems is honored.
func Correlation(repo ratings.Repository, userA, userB int, optFns ...Option) (r float64, ok bool, err error) {
	o := applyOptions(optFns)

	mo := matrix.DefaultOptions
	for _, fn := range o.builder {
		fn(&mo)
	}
	if mo.MinCommonItems < 1 {
		return 0, false, fmt.Errorf("%w: %d", ErrInvalidThreshold, mo.MinCommonItems)
	}

	users := repo.UserIDs()
	for _, id := range []int{userA, userB} {
		if _, found := slices.BinarySearch(users, id); !found {
			return 0, false, fmt.Errorf("%w %d", ErrUnknownUser, id)
		}
	}

	buf := lookup.New(ratings.MaxItemID(repo))
	return pearson.Pair(repo.RatingsOf(userA), repo.RatingsOf(userB), buf, mo.MinCommonItems)
}
