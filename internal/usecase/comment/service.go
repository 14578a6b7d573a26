// Package comment adds and lists item comments.
package comment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	domcomment "github.com/kailas-cloud/artfeed/internal/domain/comment"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/logger"
)

// Page is one page of comments, oldest first.
type Page struct {
	Comments   []domcomment.Comment
	NextCursor string
}

// Service handles item comments.
type Service struct {
	repo            Repository
	items           ItemChecker
	clock           Clock
	newID           func() string
	defaultPageSize int
	maxPageSize     int
}

// New creates a comment service.
func New(repo Repository, items ItemChecker, clock Clock) *Service {
	return &Service{
		repo:            repo,
		items:           items,
		clock:           clock,
		newID:           uuid.NewString,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithIDGenerator replaces the UUIDv4 generator.
func (s *Service) WithIDGenerator(fn func() string) *Service {
	if fn != nil {
		s.newID = fn
	}
	return s
}

// Add posts a comment on an existing item.
func (s *Service) Add(ctx context.Context, itemID, userID, content string) (domcomment.Comment, error) {
	if strings.TrimSpace(userID) == "" {
		return domcomment.Comment{}, fmt.Errorf("add comment: %w", domain.ErrPermission)
	}
	if strings.TrimSpace(itemID) == "" {
		return domcomment.Comment{}, domain.NewValidation("itemId", "is required")
	}
	c, err := domcomment.New(s.newID(), itemID, userID, content, time.Time{})
	if err != nil {
		return domcomment.Comment{}, fmt.Errorf("add comment: %w", err)
	}

	ok, err := s.items.Exists(ctx, itemID)
	if err != nil {
		return domcomment.Comment{}, domain.Classify("add comment: item exists", err)
	}
	if !ok {
		return domcomment.Comment{}, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}

	c.CreatedAt, err = s.clock.ServerTime(ctx)
	if err != nil {
		return domcomment.Comment{}, domain.Classify("add comment: server time", err)
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return domcomment.Comment{}, domain.Classify("add comment", err)
	}

	logger.FromContext(ctx).Info("Comment added",
		zap.String("item_id", itemID),
		zap.String("comment_id", c.ID),
	)
	return c, nil
}

// List returns comments of an item oldest first.
func (s *Service) List(ctx context.Context, itemID, cursor string, limit int) (Page, error) {
	if strings.TrimSpace(itemID) == "" {
		return Page{}, domain.NewValidation("itemId", "is required")
	}
	scope := page.Scope("comments", itemID)

	var after *page.Position
	if cursor != "" {
		pos, err := page.DecodeCursor(cursor, scope)
		if err != nil {
			return Page{}, fmt.Errorf("list comments: %w", err)
		}
		after = &pos
	}

	if limit <= 0 {
		limit = s.defaultPageSize
	}
	limit = min(limit, s.maxPageSize)

	rows, more, err := s.repo.Page(ctx, itemID, after, limit)
	if err != nil {
		return Page{}, domain.Classify("list comments", err)
	}

	out := Page{Comments: make([]domcomment.Comment, len(rows))}
	for i := range rows {
		out.Comments[i] = rows[i].Value
	}
	if more && len(rows) > 0 {
		out.NextCursor = page.EncodeCursor(rows[len(rows)-1].Pos, scope)
	}
	return out, nil
}
