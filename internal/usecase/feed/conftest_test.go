package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db/memory"
	"github.com/kailas-cloud/artfeed/internal/domain"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	itemrepo "github.com/kailas-cloud/artfeed/internal/repository/item"
	likerepo "github.com/kailas-cloud/artfeed/internal/repository/like"
)

// seedItem describes one stored item.
type seedItem struct {
	id    string
	ts    int64
	title string
	tags  []string
}

type fixture struct {
	store *memory.Store
	items *itemrepo.Repo
	likes *likerepo.Repo
}

func newFixture(t *testing.T, seeds ...seedItem) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{store: store, items: itemrepo.New(store, 0), likes: likerepo.New(store)}
	if err := f.items.EnsureIndex(ctx); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	for _, s := range seeds {
		title := s.title
		if title == "" {
			title = "Item " + s.id
		}
		it, err := domitem.New(s.id, domitem.Draft{
			OwnerID:   "owner",
			Title:     title,
			Tags:      s.tags,
			ViewPath:  "view/" + s.id,
			ThumbPath: "thumb/" + s.id,
		}, time.UnixMilli(s.ts))
		if err != nil {
			t.Fatalf("new item %s: %v", s.id, err)
		}
		if err := f.items.Create(ctx, &it); err != nil {
			t.Fatalf("create %s: %v", s.id, err)
		}
	}
	return f
}

func (f *fixture) service(urls domain.URLResolver) *Service {
	return New(f.items, f.likes, urls)
}

// cdn resolves every path except those listed in fail.
func cdn(fail ...string) domain.URLResolver {
	return domain.URLResolverFunc(func(_ context.Context, path string) (string, error) {
		for _, p := range fail {
			if p == path {
				return "", errors.New("blob store unavailable")
			}
		}
		return "https://cdn/" + path, nil
	})
}

// tieHeavySeeds returns n items where every three share a timestamp.
func tieHeavySeeds(n int, tags ...string) []seedItem {
	out := make([]seedItem, 0, n)
	for i := 0; i < n; i++ {
		j := (i * 11) % n
		out = append(out, seedItem{id: fmt.Sprintf("it-%02d", j), ts: int64(5000 + j/3), tags: tags})
	}
	return out
}

// drain follows NextCursor until the feed is exhausted.
func drain(t *testing.T, svc *Service, f Filter, size int) []string {
	t.Helper()
	var ids []string
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 200 {
			t.Fatal("feed did not terminate")
		}
		p, err := svc.Query(context.Background(), f, cursor, size)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(p.Entries) == 0 && p.NextCursor != "" {
			t.Fatalf("empty page carries cursor %q", p.NextCursor)
		}
		for _, e := range p.Entries {
			ids = append(ids, e.Item.ID())
		}
		if p.NextCursor == "" {
			return ids
		}
		cursor = p.NextCursor
	}
}

func joinIDs(entries []Entry) string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Item.ID()
	}
	return strings.Join(ids, ",")
}

func timeAt(ms int64) time.Time { return time.UnixMilli(ms) }
