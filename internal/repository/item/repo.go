// Package item persists gallery items as JSON documents behind an FT index.
package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/domain"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/artfeed/internal/repository/keyset"
)

// IndexName is the FT index over item documents.
const IndexName = domain.KeyPrefix + "items:idx"

// store is the consumer interface for items (ISP).
type store interface {
	JSONSetNX(ctx context.Context, key string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements the item repositories of the publish and feed use cases.
type Repo struct {
	store store
	pager *keyset.Pager[domitem.Item]
}

// New creates an item repository. maxTieGroup bounds rows sharing one createdAt.
func New(s store, maxTieGroup int) *Repo {
	return &Repo{store: s, pager: keyset.New(s, decodeEntry, maxTieGroup)}
}

// Key returns the document key of an item. The id is a hash tag so that the
// item and its like memberships share a cluster slot.
func Key(id string) string {
	return Prefix() + "{" + id + "}"
}

// Prefix is the key prefix the item index covers.
func Prefix() string {
	return domain.KeyPrefix + "item:"
}

// EnsureIndex creates the item index unless it is already there.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", IndexName, err)
	}
	if exists {
		return nil
	}
	def := db.NewIndex(IndexName).
		OnJSON().
		Prefix(Prefix()).
		Tag("$.tags[*]").As(domitem.FieldTags).
		Tag("$.searchTokens[*]").As(domitem.FieldSearchTokens).
		Numeric("$.createdAt").As(domitem.FieldCreatedAt).Sortable().
		MustBuild()
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	return nil
}

// Create stores a new item. A taken id is a conflict.
func (r *Repo) Create(ctx context.Context, it *domitem.Item) error {
	key := Key(it.ID())
	data, err := json.Marshal(toDoc(it))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if err := r.store.JSONSetNX(ctx, key, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("item %s: %w", it.ID(), domain.ErrConflict)
		}
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Get returns an item by id.
func (r *Repo) Get(ctx context.Context, id string) (domitem.Item, error) {
	key := Key(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domitem.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		return domitem.Item{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	d, err := parseJSONGetResult(raw)
	if err != nil {
		return domitem.Item{}, err
	}
	return d.toDomain(), nil
}

// Exists reports whether an item is stored.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, Key(id))
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", Key(id), err)
	}
	return ok, nil
}

// Page returns up to limit items matching filters, newest first, strictly
// after the given position.
func (r *Repo) Page(
	ctx context.Context, filters filter.Expression, after *page.Position, limit int,
) ([]page.Row[domitem.Item], bool, error) {
	rows, more, err := r.pager.Next(ctx, keyset.Query{
		Index:     IndexName,
		Filters:   filters,
		SortField: domitem.FieldCreatedAt,
		Desc:      true,
		After:     after,
		Limit:     limit,
	})
	if err != nil {
		return nil, false, fmt.Errorf("page items: %w", err)
	}
	return rows, more, nil
}
