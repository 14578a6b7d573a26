package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
)

// CreateIndex registers an index definition; only JSON indexes are searchable.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	s.indexes[def.Name] = &cp
	return nil
}

// IndexExists reports whether an index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// SearchSorted evaluates the filters over every document under the index
// prefixes and returns them sorted by SortBy. Equal sort values are ordered by
// key so results are reproducible.
func (s *Store) SearchSorted(_ context.Context, q *db.SortedQuery) (*db.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, def, err := s.matchLocked(q)
	if err != nil {
		return nil, err
	}

	if q.SortBy != "" {
		f, ok := def.Field(q.SortBy)
		if !ok || !f.Sortable {
			return nil, &db.Error{Op: db.OpSearch, Err: errUnknownSortField(q.SortBy)}
		}
		sortKey := func(k string) float64 {
			v, _ := number(s.data[k].doc[f.JSONPath()])
			return v
		}
		sort.SliceStable(hits, func(i, j int) bool {
			a, b := sortKey(hits[i]), sortKey(hits[j])
			if a != b {
				if q.Desc {
					return a > b
				}
				return a < b
			}
			return hits[i] < hits[j]
		})
	}

	res := &db.SearchResult{Total: len(hits)}
	if q.Limit < len(hits) {
		hits = hits[:q.Limit]
	}
	for _, k := range hits {
		raw, err := json.Marshal(s.data[k].doc)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		res.Entries = append(res.Entries, db.SearchEntry{
			Key:    k,
			Fields: map[string]string{db.JSONField: string(raw)},
		})
	}
	return res, nil
}

// SearchCount returns the number of matching documents.
func (s *Store) SearchCount(_ context.Context, q *db.SortedQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits, _, err := s.matchLocked(q)
	if err != nil {
		return 0, err
	}
	return len(hits), nil
}

func (s *Store) matchLocked(q *db.SortedQuery) ([]string, *db.IndexDefinition, error) {
	def, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	var hits []string
	for k, e := range s.data {
		if !hasPrefix(k, def.Prefixes) {
			continue
		}
		if eval(def, e.doc, q.Filters) {
			hits = append(hits, k)
		}
	}
	sort.Strings(hits)
	return hits, def, nil
}

func hasPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func eval(def *db.IndexDefinition, doc map[string]any, expr filter.Expression) bool {
	for _, c := range expr.Must() {
		if !evalCond(def, doc, c) {
			return false
		}
	}
	return true
}

func evalCond(def *db.IndexDefinition, doc map[string]any, c filter.Condition) bool {
	f, ok := def.Field(c.Key())
	if !ok {
		return false
	}
	v := doc[f.JSONPath()]
	switch {
	case c.IsMatch() && f.Type == db.IndexFieldTag:
		for _, have := range tagValues(v) {
			for _, want := range c.Values() {
				if have == want || (!f.TagCaseSensitive && strings.EqualFold(have, want)) {
					return true
				}
			}
		}
		return false
	case c.IsRange() && f.Type == db.IndexFieldNumeric:
		n, ok := number(v)
		return ok && c.Range().Contains(n)
	}
	return false
}

func tagValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

type errUnknownSortField string

func (e errUnknownSortField) Error() string {
	return "field " + string(e) + " is not sortable"
}
