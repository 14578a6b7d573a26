package publish

import (
	"context"
	"time"

	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
)

// Repository stores new items.
type Repository interface {
	Create(ctx context.Context, it *domitem.Item) error
}

// Clock is the store clock every writer stamps with.
type Clock interface {
	ServerTime(ctx context.Context) (time.Time, error)
}
