// Package feed plans and runs reverse-chronological feed queries.
package feed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/artfeed/internal/domain"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/mode"
	"github.com/kailas-cloud/artfeed/internal/logger"
	"github.com/kailas-cloud/artfeed/internal/metrics"
	"github.com/kailas-cloud/artfeed/internal/usecase/blob"
)

// DefaultMaxScanPages bounds how many store pages one multi-tag feed page may examine.
const DefaultMaxScanPages = 5

// Entry is one feed card.
type Entry struct {
	Item     domitem.Item
	ThumbURL string
}

// Page is one page of the feed.
type Page struct {
	Entries []Entry
	// NextCursor is empty once the scan is exhausted.
	NextCursor string
	Mode       mode.Mode
}

// Detail is the single-item view.
type Detail struct {
	Item          domitem.Item
	ViewURL       string
	LikedByViewer bool
}

// Service is the feed query planner.
type Service struct {
	repo            Repository
	likes           LikeReader
	urls            domain.URLResolver
	defaultPageSize int
	maxPageSize     int
	maxScanPages    int
}

// New creates a feed service. urls may be nil, in which case every image is the placeholder.
func New(repo Repository, likes LikeReader, urls domain.URLResolver) *Service {
	return &Service{
		repo:            repo,
		likes:           likes,
		urls:            urls,
		defaultPageSize: 20,
		maxPageSize:     100,
		maxScanPages:    DefaultMaxScanPages,
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

// WithMaxScanPages bounds the store pages examined per multi-tag feed page.
func (s *Service) WithMaxScanPages(n int) *Service {
	if n > 0 {
		s.maxScanPages = n
	}
	return s
}

// Plan exposes the plan a filter would run with.
func (s *Service) Plan(f Filter) (Plan, error) {
	return NewPlan(f)
}

// Query returns one feed page ordered by createdAt then id, both descending.
// cursor is the NextCursor of the previous page under the same filter, or empty.
func (s *Service) Query(ctx context.Context, f Filter, cursor string, pageSize int) (Page, error) {
	plan, err := NewPlan(f)
	if err != nil {
		return Page{}, err
	}
	size := s.pageSize(pageSize)

	var after *page.Position
	if cursor != "" {
		pos, err := page.DecodeCursor(cursor, plan.Scope)
		if err != nil {
			return Page{}, fmt.Errorf("query: %w", err)
		}
		after = &pos
	}

	items, last, more, scanned, err := s.scan(ctx, &plan, after, size)
	if err != nil {
		return Page{}, err
	}

	metrics.FeedQueriesTotal.WithLabelValues(string(plan.Mode)).Inc()
	metrics.FeedPageRows.WithLabelValues("returned").Observe(float64(len(items)))
	metrics.FeedPageRows.WithLabelValues("scanned").Observe(float64(scanned))

	out := Page{Entries: s.withThumbs(ctx, items), Mode: plan.Mode}
	if more && last != nil {
		out.NextCursor = page.EncodeCursor(*last, plan.Scope)
	}

	logger.FromContext(ctx).Debug("Feed page served",
		zap.String("mode", string(plan.Mode)),
		zap.Int("returned", len(items)),
		zap.Int("scanned", scanned),
		zap.Bool("more", more),
	)
	return out, nil
}

// scan pulls store pages until the feed page is full or the store is exhausted.
// Once at least one item is on the page it also stops after maxScanPages, so a
// non-empty page may end early with more set. An empty page always means the
// store is exhausted. last is the final examined row, matching or not.
func (s *Service) scan(ctx context.Context, plan *Plan, after *page.Position, size int) (
	items []domitem.Item, last *page.Position, more bool, scanned int, err error,
) {
	last = after
	fetch := size
	for pages := 0; pages < s.maxScanPages || len(items) == 0; pages++ {
		if len(plan.RequireTags) == 0 {
			fetch = size - len(items)
		}
		rows, m, err := s.repo.Page(ctx, plan.Primary, last, fetch)
		if err != nil {
			return nil, nil, false, 0, domain.Classify("query feed", err)
		}
		more = m
		for i := range rows {
			pos := rows[i].Pos
			last = &pos
			scanned++
			if plan.Accepts(&rows[i].Value) {
				items = append(items, rows[i].Value)
			}
			if len(items) == size {
				more = more || i < len(rows)-1
				return items, last, more, scanned, nil
			}
		}
		if !more {
			break
		}
	}
	return items, last, more, scanned, nil
}

// withThumbs resolves thumbnail URLs concurrently. A failed resolution only
// affects its own entry.
func (s *Service) withThumbs(ctx context.Context, items []domitem.Item) []Entry {
	entries := make([]Entry, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(len(items), 1))
	for i := range items {
		entries[i].Item = items[i]
		g.Go(func() error {
			entries[i].ThumbURL = blob.URLOrPlaceholder(gctx, s.urls, items[i].ThumbPath())
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail
	return entries
}

// Item returns the detail view of one item. viewerID may be empty.
func (s *Service) Item(ctx context.Context, id, viewerID string) (Detail, error) {
	if strings.TrimSpace(id) == "" {
		return Detail{}, domain.NewValidation("id", "is required")
	}
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, domain.Classify("get item", err)
	}

	d := Detail{Item: it, ViewURL: blob.URLOrPlaceholder(ctx, s.urls, it.ViewPath())}
	if viewerID != "" && s.likes != nil {
		liked, err := s.likes.Liked(ctx, id, viewerID)
		if err != nil {
			return Detail{}, domain.Classify("liked", err)
		}
		d.LikedByViewer = liked
	}
	return d, nil
}

func (s *Service) pageSize(n int) int {
	if n <= 0 {
		return s.defaultPageSize
	}
	return min(n, s.maxPageSize)
}
