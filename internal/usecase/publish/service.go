// Package publish writes new items together with their search index entries.
package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	"github.com/kailas-cloud/artfeed/internal/logger"
)

// Service is the index writer.
type Service struct {
	repo  Repository
	clock Clock
	newID func() string
}

// New creates a publish service.
func New(repo Repository, clock Clock) *Service {
	return &Service{repo: repo, clock: clock, newID: uuid.NewString}
}

// WithIDGenerator replaces the UUIDv4 generator.
func (s *Service) WithIDGenerator(fn func() string) *Service {
	if fn != nil {
		s.newID = fn
	}
	return s
}

// Publish validates a draft, derives its search tokens and stores the item in
// one atomic create. Nothing is written when validation fails.
func (s *Service) Publish(ctx context.Context, d domitem.Draft) (domitem.Item, error) {
	if strings.TrimSpace(d.OwnerID) == "" {
		return domitem.Item{}, fmt.Errorf("publish: owner is required: %w", domain.ErrPermission)
	}

	it, err := domitem.New(s.newID(), d, time.Time{})
	if err != nil {
		return domitem.Item{}, fmt.Errorf("publish: %w", err)
	}

	now, err := s.clock.ServerTime(ctx)
	if err != nil {
		return domitem.Item{}, domain.Classify("publish: server time", err)
	}
	it = it.WithCreatedAt(now)

	if err := s.repo.Create(ctx, &it); err != nil {
		return domitem.Item{}, domain.Classify("publish: create item", err)
	}

	logger.FromContext(ctx).Info("Item published",
		zap.String("item_id", it.ID()),
		zap.String("owner_id", it.OwnerID()),
		zap.Int("tags", len(it.Tags())),
		zap.Int("tokens", len(it.SearchTokens())),
	)
	return it, nil
}
