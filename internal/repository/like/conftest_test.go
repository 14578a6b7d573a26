package like

import (
	"context"
	"testing"

	"github.com/kailas-cloud/artfeed/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	runTxFn       func(ctx context.Context, watch []string, fn func(ctx context.Context, tx db.Tx) error) error
	jsonGetFn     func(ctx context.Context, key string, paths ...string) ([]byte, error)
	existsFn      func(ctx context.Context, key string) (bool, error)
	searchCountFn func(ctx context.Context, q *db.SortedQuery) (int, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) RunTx(ctx context.Context, watch []string, fn func(ctx context.Context, tx db.Tx) error) error {
	if m.runTxFn != nil {
		return m.runTxFn(ctx, watch, fn)
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

func (m *mockStore) SearchCount(ctx context.Context, q *db.SortedQuery) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, q)
	}
	return 0, nil
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

// fakeTx records queued writes and serves canned reads.
type fakeTx struct {
	count  string
	member bool
	dels   []string
	json   map[string]string
}

func (f *fakeTx) JSONGet(_ context.Context, _ string, _ ...string) ([]byte, error) {
	if f.count == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(f.count), nil
}

func (f *fakeTx) Exists(context.Context, string) (bool, error) { return f.member, nil }

func (f *fakeTx) JSONSet(key, path string, data []byte) {
	if f.json == nil {
		f.json = map[string]string{}
	}
	f.json[key+" "+path] = string(data)
}

func (f *fakeTx) Del(key string) { f.dels = append(f.dels, key) }

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
