// Package comment persists item comments and lists them oldest first.
package comment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/domain"
	domcomment "github.com/kailas-cloud/artfeed/internal/domain/comment"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/artfeed/internal/repository/keyset"
)

// IndexName is the FT index over comments.
const IndexName = domain.KeyPrefix + "comments:idx"

const (
	fieldItemID    = "itemId"
	fieldCreatedAt = "createdAt"
)

// store is the consumer interface for comments (ISP).
type store interface {
	JSONSetNX(ctx context.Context, key string, data []byte) error
	SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

type commentDoc struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// Repo implements usecase/comment.Repository.
type Repo struct {
	store store
	pager *keyset.Pager[domcomment.Comment]
}

// New creates a comment repository.
func New(s store, maxTieGroup int) *Repo {
	return &Repo{store: s, pager: keyset.New(s, decodeEntry, maxTieGroup)}
}

func key(itemID, id string) string {
	return fmt.Sprintf("%scomment:%s:%s", domain.KeyPrefix, itemID, id)
}

// EnsureIndex creates the comment index unless it is already there.
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
		Prefix(domain.KeyPrefix+"comment:").
		TagWithOpts("$.itemId", "", true).As(fieldItemID).
		Numeric("$.createdAt").As(fieldCreatedAt).Sortable().
		MustBuild()
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	return nil
}

// Create stores a new comment.
func (r *Repo) Create(ctx context.Context, c *domcomment.Comment) error {
	k := key(c.ItemID, c.ID)
	data, err := json.Marshal(commentDoc{
		ID:        c.ID,
		ItemID:    c.ItemID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	if err := r.store.JSONSetNX(ctx, k, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("comment %s: %w", c.ID, domain.ErrConflict)
		}
		return fmt.Errorf("json.set %s: %w", k, err)
	}
	return nil
}

// Page lists comments of an item oldest first, strictly after the given position.
func (r *Repo) Page(
	ctx context.Context, itemID string, after *page.Position, limit int,
) ([]page.Row[domcomment.Comment], bool, error) {
	cond, err := filter.NewMatch(fieldItemID, itemID)
	if err != nil {
		return nil, false, fmt.Errorf("item filter: %w", err)
	}
	rows, more, err := r.pager.Next(ctx, keyset.Query{
		Index:     IndexName,
		Filters:   filter.All(cond),
		SortField: fieldCreatedAt,
		After:     after,
		Limit:     limit,
	})
	if err != nil {
		return nil, false, fmt.Errorf("page comments %s: %w", itemID, err)
	}
	return rows, more, nil
}

func decodeEntry(e db.SearchEntry) (page.Position, domcomment.Comment, error) {
	var d commentDoc
	if err := json.Unmarshal(e.Doc(), &d); err != nil {
		return page.Position{}, domcomment.Comment{}, fmt.Errorf("unmarshal comment: %w", err)
	}
	return page.Position{CreatedAt: d.CreatedAt, ID: d.ID}, domcomment.Comment{
		ID:        d.ID,
		ItemID:    d.ItemID,
		UserID:    d.UserID,
		Content:   d.Content,
		CreatedAt: time.UnixMilli(d.CreatedAt),
	}, nil
}
