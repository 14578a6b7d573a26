package feed

import (
	"context"

	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
)

// Repository pages through items newest first.
type Repository interface {
	Page(ctx context.Context, filters filter.Expression, after *page.Position, limit int) (
		rows []page.Row[domitem.Item], more bool, err error,
	)
	Get(ctx context.Context, id string) (domitem.Item, error)
}

// LikeReader answers whether a viewer likes an item.
type LikeReader interface {
	Liked(ctx context.Context, itemID, userID string) (bool, error)
}
