// Package engagement toggles likes and keeps the aggregate counter equal to
// the number of memberships under concurrent access.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
	"github.com/kailas-cloud/artfeed/internal/logger"
	"github.com/kailas-cloud/artfeed/internal/metrics"
)

// DefaultMaxAttempts bounds optimistic retries of one toggle.
const DefaultMaxAttempts = 16

// Service is the engagement counter.
type Service struct {
	repo        Repository
	clock       Clock
	maxAttempts int
}

// New creates an engagement service.
func New(repo Repository, clock Clock) *Service {
	return &Service{repo: repo, clock: clock, maxAttempts: DefaultMaxAttempts}
}

// WithMaxAttempts sets how many times a contended toggle is retried in total.
func (s *Service) WithMaxAttempts(n int) *Service {
	if n > 0 {
		s.maxAttempts = n
	}
	return s
}

// Toggle flips the user's like on an item and returns the committed state.
// Each attempt is one store transaction; an attempt that lost to a concurrent
// writer is rerun from scratch. Running out of attempts is a ConflictError.
func (s *Service) Toggle(ctx context.Context, itemID, userID string) (domlike.Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return domlike.Outcome{}, fmt.Errorf("toggle like: %w", domain.ErrPermission)
	}
	if strings.TrimSpace(itemID) == "" {
		return domlike.Outcome{}, domain.NewValidation("itemId", "is required")
	}

	now, err := s.clock.ServerTime(ctx)
	if err != nil {
		return domlike.Outcome{}, domain.Classify("toggle like: server time", err)
	}

	log := logger.FromContext(ctx)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		out, err := s.repo.Toggle(ctx, itemID, userID, now)
		if err == nil {
			s.count(out)
			return out, nil
		}
		if !errors.Is(err, domlike.ErrContended) {
			metrics.LikeTogglesTotal.WithLabelValues("error").Inc()
			if errors.Is(err, domain.ErrInvariantViolation) {
				log.Error("Like counter inconsistent", zap.String("item_id", itemID), zap.Error(err))
			}
			return domlike.Outcome{}, domain.Classify("toggle like", err)
		}
		metrics.LikeTxConflictsTotal.Inc()
		log.Debug("Like transaction contended, retrying",
			zap.String("item_id", itemID),
			zap.Int("attempt", attempt),
		)
		if err := ctx.Err(); err != nil {
			return domlike.Outcome{}, fmt.Errorf("toggle like: %w", err)
		}
	}

	metrics.LikeTogglesTotal.WithLabelValues("conflict").Inc()
	log.Warn("Like toggle gave up", zap.String("item_id", itemID), zap.Int("attempts", s.maxAttempts))
	return domlike.Outcome{}, fmt.Errorf("toggle like %s: %w", itemID, &domain.ConflictError{Attempts: s.maxAttempts})
}

// Liked reports whether the user likes the item. An empty user likes nothing.
func (s *Service) Liked(ctx context.Context, itemID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := s.repo.Liked(ctx, itemID, userID)
	if err != nil {
		return false, domain.Classify("liked", err)
	}
	return ok, nil
}

// Audit compares an item's counter with its membership set.
func (s *Service) Audit(ctx context.Context, itemID string) (domlike.Audit, error) {
	if strings.TrimSpace(itemID) == "" {
		return domlike.Audit{}, domain.NewValidation("itemId", "is required")
	}
	a, err := s.repo.Audit(ctx, itemID)
	if err != nil {
		return domlike.Audit{}, domain.Classify("audit likes", err)
	}
	if !a.Consistent() {
		logger.FromContext(ctx).Warn("Like counter drift",
			zap.String("item_id", itemID),
			zap.Int64("like_count", a.LikeCount),
			zap.Int64("members", a.Members),
		)
	}
	return a, nil
}

func (s *Service) count(out domlike.Outcome) {
	result := "unliked"
	if out.Liked {
		result = "liked"
	}
	metrics.LikeTogglesTotal.WithLabelValues(result).Inc()
}
