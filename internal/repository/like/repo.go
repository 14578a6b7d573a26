// Package like stores per-user like memberships next to the item counter they
// aggregate and flips both in one optimistic transaction.
//
// Membership keys carry the item id as a hash tag, the same one the item key
// uses, so a toggle watches and writes a single cluster slot.
package like

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/domain"
	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/artfeed/internal/repository/item"
)

// IndexName is the FT index over membership documents.
const IndexName = domain.KeyPrefix + "likes:idx"

// FieldItemID is the index attribute memberships are counted by.
const FieldItemID = "itemId"

const likeCountPath = "$.likeCount"

// store is the consumer interface for likes (ISP).
type store interface {
	RunTx(ctx context.Context, watch []string, fn func(ctx context.Context, tx db.Tx) error) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	SearchCount(ctx context.Context, q *db.SortedQuery) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// membership is the stored document of a like key.
type membership struct {
	ItemID    string `json:"itemId"`
	UserID    string `json:"userId"`
	CreatedAt int64  `json:"createdAt"`
}

// Repo implements usecase/engagement.Repository.
type Repo struct {
	store store
}

// New creates a like repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Key returns the membership key of a user on an item.
func Key(itemID, userID string) string {
	return Prefix() + "{" + itemID + "}:" + userID
}

// Prefix is the key prefix the membership index covers.
func Prefix() string {
	return domain.KeyPrefix + "like:"
}

// EnsureIndex creates the membership index unless it is already there.
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
		TagWithOpts("$.itemId", ",", true).As(FieldItemID).
		MustBuild()
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	return nil
}

// Toggle runs one toggle attempt: read counter and membership under WATCH,
// decide the transition, commit both writes together. A commit lost to a
// concurrent writer returns ErrContended with nothing applied.
func (r *Repo) Toggle(ctx context.Context, itemID, userID string, at time.Time) (domlike.Outcome, error) {
	itemKey := item.Key(itemID)
	memberKey := Key(itemID, userID)

	var out domlike.Outcome
	err := r.store.RunTx(ctx, []string{itemKey, memberKey}, func(ctx context.Context, tx db.Tx) error {
		raw, err := tx.JSONGet(ctx, itemKey, likeCountPath)
		if err != nil {
			return notFound(itemID, err)
		}
		count, err := parseCount(raw)
		if err != nil {
			return err
		}
		liked, err := tx.Exists(ctx, memberKey)
		if err != nil {
			return fmt.Errorf("exists %s: %w", memberKey, err)
		}

		next, err := domlike.Decide(liked, count)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, err)
		}
		if next.Liked {
			data, err := json.Marshal(membership{ItemID: itemID, UserID: userID, CreatedAt: at.UnixMilli()})
			if err != nil {
				return fmt.Errorf("marshal membership: %w", err)
			}
			tx.JSONSet(memberKey, "$", data)
		} else {
			tx.Del(memberKey)
		}
		tx.JSONSet(itemKey, likeCountPath, []byte(fmt.Sprint(next.Count)))

		out = domlike.Outcome{ItemID: itemID, Liked: next.Liked, LikeCount: next.Count}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrTxConflict) {
			return domlike.Outcome{}, fmt.Errorf("toggle %s: %w", itemID, domlike.ErrContended)
		}
		return domlike.Outcome{}, fmt.Errorf("toggle %s: %w", itemID, err)
	}
	return out, nil
}

// Liked reports whether the user currently likes the item.
func (r *Repo) Liked(ctx context.Context, itemID, userID string) (bool, error) {
	key := Key(itemID, userID)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// Audit reads the counter and counts the memberships indexed for the item.
// The two reads are not atomic; a toggle in between shows up as a transient mismatch.
func (r *Repo) Audit(ctx context.Context, itemID string) (domlike.Audit, error) {
	raw, err := r.store.JSONGet(ctx, item.Key(itemID), likeCountPath)
	if err != nil {
		return domlike.Audit{}, notFound(itemID, err)
	}
	count, err := parseCount(raw)
	if err != nil {
		return domlike.Audit{}, err
	}
	cond, err := filter.NewMatch(FieldItemID, itemID)
	if err != nil {
		return domlike.Audit{}, fmt.Errorf("audit %s: %w", itemID, err)
	}
	members, err := r.store.SearchCount(ctx, &db.SortedQuery{IndexName: IndexName, Filters: filter.All(cond)})
	if err != nil {
		return domlike.Audit{}, fmt.Errorf("count memberships of %s: %w", itemID, err)
	}
	return domlike.Audit{ItemID: itemID, LikeCount: count, Members: int64(members)}, nil
}

func notFound(itemID string, err error) error {
	if errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	return fmt.Errorf("json.get %s: %w", item.Key(itemID), err)
}

// parseCount reads the one-element array JSON.GET returns for a JSONPath.
// A document without the field counts as zero.
func parseCount(raw []byte) (int64, error) {
	var vals []int64
	if err := json.Unmarshal(raw, &vals); err != nil {
		return 0, fmt.Errorf("%w: like count %q: %w", domain.ErrInvariantViolation, raw, err)
	}
	if len(vals) == 0 {
		return 0, nil
	}
	return vals[0], nil
}
