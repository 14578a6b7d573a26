package item

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetNXFn    func(ctx context.Context, key string, data []byte) error
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	existsFn       func(ctx context.Context, key string) (bool, error)
	searchSortedFn func(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn  func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) JSONSetNX(ctx context.Context, key string, data []byte) error {
	if m.jsonSetNXFn != nil {
		return m.jsonSetNXFn(ctx, key, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error) {
	if m.searchSortedFn != nil {
		return m.searchSortedFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, 0), ms
}

func testItem(t *testing.T, id string, createdAt int64, tags ...string) domitem.Item {
	t.Helper()
	it, err := domitem.New(id, domitem.Draft{
		OwnerID:   "owner-1",
		Title:     "Sunset " + id,
		Caption:   "over the bay",
		Tags:      tags,
		ViewPath:  "view/" + id + ".webp",
		ThumbPath: "thumb/" + id + ".webp",
	}, time.UnixMilli(createdAt))
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	return it
}
