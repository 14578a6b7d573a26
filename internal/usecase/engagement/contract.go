package engagement

import (
	"context"
	"time"

	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
)

// Repository runs like transactions.
type Repository interface {
	// Toggle runs one optimistic attempt and returns domlike.ErrContended when
	// a concurrent writer won the commit.
	Toggle(ctx context.Context, itemID, userID string, at time.Time) (domlike.Outcome, error)
	Liked(ctx context.Context, itemID, userID string) (bool, error)
	Audit(ctx context.Context, itemID string) (domlike.Audit, error)
}

// Clock is the store clock memberships are stamped with.
type Clock interface {
	ServerTime(ctx context.Context) (time.Time, error)
}
