package ratings

import (
	"slices"
	"sync"
)

// MemoryRepository is an in-memory Repository.
// It is safe for concurrent use; readers see a sealed, sorted view.
type MemoryRepository struct {
	mu     sync.RWMutex
	byUser map[int][]Rating
	sealed bool

	users    []int
	items    []int
	itemSum  map[int]float64
	itemCnt  map[int]int
	nRatings int
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byUser: make(map[int][]Rating),
	}
}

// Add appends ratings for userID. If the user rates the same item more than
// once, the last rating wins.
func (m *MemoryRepository) Add(userID int, rs ...Rating) error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byUser[userID] = append(m.byUser[userID], rs...)
	m.sealed = false
	return nil
}

// seal sorts every user's ratings by item, drops duplicates and rebuilds the
// ordered id slices and item statistics. Callers hold the write lock.
func (m *MemoryRepository) seal() {
	m.users = make([]int, 0, len(m.byUser))
	m.itemSum = make(map[int]float64)
	m.itemCnt = make(map[int]int)
	m.nRatings = 0

	for userID, rs := range m.byUser {
		slices.SortStableFunc(rs, func(a, b Rating) int { return a.ItemID - b.ItemID })

		// Keep the last rating per item.
		out := rs[:0]
		for i, r := range rs {
			if i+1 < len(rs) && rs[i+1].ItemID == r.ItemID {
				continue
			}
			out = append(out, r)
		}
		m.byUser[userID] = out

		m.users = append(m.users, userID)
		for _, r := range out {
			m.itemSum[r.ItemID] += float64(r.Value)
			m.itemCnt[r.ItemID]++
		}
		m.nRatings += len(out)
	}
	slices.Sort(m.users)

	m.items = make([]int, 0, len(m.itemCnt))
	for itemID := range m.itemCnt {
		m.items = append(m.items, itemID)
	}
	slices.Sort(m.items)

	m.sealed = true
}

func (m *MemoryRepository) view() *MemoryRepository {
	m.mu.RLock()
	if m.sealed {
		m.mu.RUnlock()
		return m
	}
	m.mu.RUnlock()

	m.mu.Lock()
	if !m.sealed {
		m.seal()
	}
	m.mu.Unlock()
	return m
}

// UserIDs returns the user ids in ascending order.
func (m *MemoryRepository) UserIDs() []int {
	v := m.view()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.users
}

// ItemIDs returns the rated item ids in ascending order.
func (m *MemoryRepository) ItemIDs() []int {
	v := m.view()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items
}

// RatingsOf returns userID's ratings sorted by item id.
func (m *MemoryRepository) RatingsOf(userID int) []Rating {
	v := m.view()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.byUser[userID]
}

// UserCount returns the number of users.
func (m *MemoryRepository) UserCount() int {
	v := m.view()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.users)
}

// RatingCount returns the number of stored ratings.
func (m *MemoryRepository) RatingCount() int {
	v := m.view()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.nRatings
}

// MeanRatingOf returns the mean rating of itemID over all users, or 0 if
// nobody rated it.
func (m *MemoryRepository) MeanRatingOf(itemID int) float64 {
	v := m.view()
	v.mu.RLock()
	defer v.mu.RUnlock()

	n := v.itemCnt[itemID]
	if n == 0 {
		return 0
	}
	return v.itemSum[itemID] / float64(n)
}
