package keyset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/db/memory"
	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
)

const testIndex = "t:idx"

type row struct {
	ID   string `json:"id"`
	TS   int64  `json:"ts"`
	Kind string `json:"kind"`
}

func decodeRow(e db.SearchEntry) (page.Position, row, error) {
	var r row
	if err := json.Unmarshal(e.Doc(), &r); err != nil {
		return page.Position{}, row{}, err
	}
	return page.Position{CreatedAt: r.TS, ID: r.ID}, r, nil
}

func seed(t *testing.T, rows []row) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	def := db.NewIndex(testIndex).OnJSON().Prefix("t:row:").
		Tag("$.kind").As("kind").
		Numeric("$.ts").As("ts").Sortable().
		MustBuild()
	if err := s.CreateIndex(ctx, def); err != nil {
		t.Fatalf("create index: %v", err)
	}
	for _, r := range rows {
		data, _ := json.Marshal(r)
		if err := s.JSONSet(ctx, "t:row:"+r.ID, "$", data); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
	return s
}

// tieHeavy returns n rows where every four share a timestamp. Ids are
// inserted out of order so key order never lines up with id order by chance.
func tieHeavy(n int) []row {
	rows := make([]row, 0, n)
	for i := 0; i < n; i++ {
		j := (i * 7) % n
		rows = append(rows, row{ID: fmt.Sprintf("id-%03d", j), TS: int64(1000 + j/4), Kind: "a"})
	}
	return rows
}

func walk(t *testing.T, p *Pager[row], q Query) []page.Position {
	t.Helper()
	var seen []page.Position
	for pages := 0; ; pages++ {
		if pages > 100 {
			t.Fatal("pagination did not terminate")
		}
		rows, more, err := p.Next(context.Background(), q)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if len(rows) > q.Limit {
			t.Fatalf("page of %d exceeds limit %d", len(rows), q.Limit)
		}
		for _, r := range rows {
			seen = append(seen, r.Pos)
		}
		if !more {
			return seen
		}
		if len(rows) == 0 {
			t.Fatal("more=true with an empty page")
		}
		last := rows[len(rows)-1].Pos
		q.After = &last
	}
}

func TestNext_TieHeavyDescending(t *testing.T) {
	const n = 37
	s := seed(t, tieHeavy(n))
	p := New(s, decodeRow, 0)

	for _, limit := range []int{1, 3, 4, 5, 7, 50} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			seen := walk(t, p, Query{Index: testIndex, SortField: "ts", Desc: true, Limit: limit})
			if len(seen) != n {
				t.Fatalf("expected %d rows, got %d", n, len(seen))
			}
			for i := 1; i < len(seen); i++ {
				if !seen[i].Less(seen[i-1]) {
					t.Fatalf("row %d (%v) not after %v", i, seen[i], seen[i-1])
				}
			}
		})
	}
}

func TestNext_TieHeavyAscending(t *testing.T) {
	const n = 23
	s := seed(t, tieHeavy(n))
	p := New(s, decodeRow, 0)

	seen := walk(t, p, Query{Index: testIndex, SortField: "ts", Limit: 3})
	if len(seen) != n {
		t.Fatalf("expected %d rows, got %d", n, len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if !seen[i-1].Less(seen[i]) {
			t.Fatalf("row %d (%v) not after %v", i, seen[i], seen[i-1])
		}
	}
}

func TestNext_Filtered(t *testing.T) {
	rows := tieHeavy(20)
	for i := range rows {
		if i%2 == 0 {
			rows[i].Kind = "b"
		}
	}
	s := seed(t, rows)
	p := New(s, decodeRow, 0)
	cond, _ := filter.NewMatch("kind", "b")

	seen := walk(t, p, Query{Index: testIndex, Filters: filter.All(cond), SortField: "ts", Desc: true, Limit: 4})
	if len(seen) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(seen))
	}
}

func TestNext_ExactFitReportsNoMore(t *testing.T) {
	s := seed(t, []row{
		{ID: "a", TS: 1, Kind: "a"},
		{ID: "b", TS: 2, Kind: "a"},
	})
	p := New(s, decodeRow, 0)

	rows, more, err := p.Next(context.Background(), Query{Index: testIndex, SortField: "ts", Desc: true, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if more {
		t.Error("expected more=false")
	}
	if len(rows) != 2 || rows[0].Value.ID != "b" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestNext_Empty(t *testing.T) {
	p := New(seed(t, nil), decodeRow, 0)
	rows, more, err := p.Next(context.Background(), Query{Index: testIndex, SortField: "ts", Desc: true, Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 || more {
		t.Errorf("expected empty page, got %d rows more=%v", len(rows), more)
	}
}

func TestNext_TieGroupTooLarge(t *testing.T) {
	rows := []row{{ID: "a", TS: 5}, {ID: "b", TS: 5}, {ID: "c", TS: 5}}
	p := New(seed(t, rows), decodeRow, 2)

	_, _, err := p.Next(context.Background(), Query{Index: testIndex, SortField: "ts", Desc: true, Limit: 1})
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for oversized tie group, got %v", err)
	}
}

func TestNext_InvalidLimit(t *testing.T) {
	p := New(seed(t, nil), decodeRow, 0)
	if _, _, err := p.Next(context.Background(), Query{Index: testIndex, SortField: "ts"}); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

type failingSearcher struct{ err error }

func (f failingSearcher) SearchSorted(context.Context, *db.SortedQuery) (*db.SearchResult, error) {
	return nil, f.err
}

func TestNext_SearchError(t *testing.T) {
	boom := errors.New("boom")
	p := New[row](failingSearcher{err: boom}, decodeRow, 0)
	_, _, err := p.Next(context.Background(), Query{Index: testIndex, SortField: "ts", Limit: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
