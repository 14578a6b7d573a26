package memory

import "github.com/kailas-cloud/artfeed/internal/db"

// Snapshot reads the store while View holds its read lock.
type Snapshot struct {
	s *Store
}

// JSONGet behaves like Store.JSONGet.
func (v Snapshot) JSONGet(key string, paths ...string) ([]byte, error) {
	return v.s.jsonGetLocked(key, paths...)
}

// Exists reports whether key holds a document.
func (v Snapshot) Exists(key string) bool {
	_, ok := v.s.data[key]
	return ok
}

// SearchCount behaves like Store.SearchCount.
func (v Snapshot) SearchCount(q *db.SortedQuery) (int, error) {
	hits, _, err := v.s.matchLocked(q)
	if err != nil {
		return 0, err
	}
	return len(hits), nil
}

// View runs fn against a frozen store: a transaction is either fully applied
// or not at all for every read fn makes. fn must not call methods on the
// Store itself.
func (s *Store) View(fn func(Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(Snapshot{s: s})
}
