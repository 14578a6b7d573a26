package db

import "github.com/kailas-cloud/artfeed/internal/domain/search/filter"

// SortedQuery is the input for a filtered, sorted, limited FT.SEARCH.
type SortedQuery struct {
	IndexName string
	Filters   filter.Expression
	SortBy    string
	Desc      bool
	Limit     int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// For JSON indexes the whole document is in Fields["$"].
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// JSONField is the pseudo-field holding a JSON document body.
const JSONField = "$"

// Doc returns the raw JSON document of a JSON index hit.
func (e SearchEntry) Doc() []byte {
	return []byte(e.Fields[JSONField])
}
