// Package keyset pages through an FT index in a total (createdAt, id) order.
//
// The store only sorts by createdAt, so rows sharing a timestamp come back in
// no particular order. The pager never cuts such a tie group blindly: at the
// cursor and at the page boundary it loads the whole group and orders it by id.
package keyset

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
)

// DefaultMaxTieGroup bounds how many rows may share one timestamp.
const DefaultMaxTieGroup = 1000

type searcher interface {
	SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error)
}

// Decoder turns a search hit into a row.
type Decoder[T any] func(e db.SearchEntry) (page.Position, T, error)

// Query selects one page.
type Query struct {
	Index     string
	Filters   filter.Expression
	SortField string // numeric SORTABLE attribute holding unix ms
	Desc      bool
	After     *page.Position // exclusive; nil starts from the top
	Limit     int
}

// Pager runs keyset queries for one row type.
type Pager[T any] struct {
	store       searcher
	decode      Decoder[T]
	maxTieGroup int
}

// New creates a pager. maxTieGroup <= 0 uses DefaultMaxTieGroup.
func New[T any](s searcher, decode Decoder[T], maxTieGroup int) *Pager[T] {
	if maxTieGroup <= 0 {
		maxTieGroup = DefaultMaxTieGroup
	}
	return &Pager[T]{store: s, decode: decode, maxTieGroup: maxTieGroup}
}

// Next returns up to q.Limit rows strictly after q.After and whether more rows exist.
func (p *Pager[T]) Next(ctx context.Context, q Query) ([]page.Row[T], bool, error) {
	if q.Limit <= 0 {
		return nil, false, fmt.Errorf("limit must be positive")
	}

	var rows []page.Row[T]
	if q.After != nil {
		group, err := p.tieGroup(ctx, q, q.After.CreatedAt)
		if err != nil {
			return nil, false, err
		}
		for _, r := range group {
			if p.after(q, r.Pos, *q.After) {
				rows = append(rows, r)
			}
		}
		if len(rows) > q.Limit {
			return rows[:q.Limit], true, nil
		}
	}

	need := q.Limit - len(rows)
	expr := q.Filters
	if q.After != nil {
		bound := filter.Below(float64(q.After.CreatedAt))
		if !q.Desc {
			bound = filter.Above(float64(q.After.CreatedAt))
		}
		cond, err := filter.NewRange(q.SortField, bound)
		if err != nil {
			return nil, false, err
		}
		expr = expr.And(cond)
	}

	rest, err := p.search(ctx, q, expr, need+1)
	if err != nil {
		return nil, false, err
	}
	if len(rest) <= need {
		p.order(q, rest)
		return append(rows, rest...), false, nil
	}

	// rest[need] is the first row left out; its timestamp group may straddle
	// the boundary, so every earlier timestamp is complete and that one is not.
	boundary := rest[need].Pos.CreatedAt
	complete := make([]page.Row[T], 0, need)
	for _, r := range rest[:need] {
		if r.Pos.CreatedAt != boundary {
			complete = append(complete, r)
		}
	}
	p.order(q, complete)
	rows = append(rows, complete...)

	if fill := need - len(complete); fill > 0 {
		group, err := p.tieGroup(ctx, q, boundary)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, group[:min(fill, len(group))]...)
	}
	return rows, true, nil
}

// tieGroup loads every row at ts in id order.
func (p *Pager[T]) tieGroup(ctx context.Context, q Query, ts int64) ([]page.Row[T], error) {
	cond, err := filter.NewRange(q.SortField, filter.Exactly(float64(ts)))
	if err != nil {
		return nil, err
	}
	group, err := p.search(ctx, q, q.Filters.And(cond), p.maxTieGroup+1)
	if err != nil {
		return nil, err
	}
	if len(group) > p.maxTieGroup {
		return nil, fmt.Errorf("%w: more than %d rows share timestamp %d",
			domain.ErrInvariantViolation, p.maxTieGroup, ts)
	}
	p.order(q, group)
	return group, nil
}

func (p *Pager[T]) search(ctx context.Context, q Query, expr filter.Expression, limit int) ([]page.Row[T], error) {
	res, err := p.store.SearchSorted(ctx, &db.SortedQuery{
		IndexName: q.Index,
		Filters:   expr,
		SortBy:    q.SortField,
		Desc:      q.Desc,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Index, err)
	}
	rows := make([]page.Row[T], 0, len(res.Entries))
	for _, e := range res.Entries {
		pos, v, err := p.decode(e)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		rows = append(rows, page.Row[T]{Pos: pos, Value: v})
	}
	return rows, nil
}

func (p *Pager[T]) order(q Query, rows []page.Row[T]) {
	sort.SliceStable(rows, func(i, j int) bool {
		if q.Desc {
			return rows[j].Pos.Less(rows[i].Pos)
		}
		return rows[i].Pos.Less(rows[j].Pos)
	})
}

// after reports whether pos comes strictly after cursor in the query order.
func (p *Pager[T]) after(q Query, pos, cursor page.Position) bool {
	if q.Desc {
		return pos.Less(cursor)
	}
	return cursor.Less(pos)
}
