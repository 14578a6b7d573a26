package comment

import (
	"context"
	"time"

	domcomment "github.com/kailas-cloud/artfeed/internal/domain/comment"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
)

// Repository stores and pages comments.
type Repository interface {
	Create(ctx context.Context, c *domcomment.Comment) error
	Page(ctx context.Context, itemID string, after *page.Position, limit int) (
		rows []page.Row[domcomment.Comment], more bool, err error,
	)
}

// ItemChecker confirms the commented item exists.
type ItemChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Clock is the store clock comments are stamped with.
type Clock interface {
	ServerTime(ctx context.Context) (time.Time, error)
}
