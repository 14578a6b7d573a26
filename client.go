package artfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/db/memory"
	dbRedis "github.com/kailas-cloud/artfeed/internal/db/redis"
	"github.com/kailas-cloud/artfeed/internal/domain"
	domcomment "github.com/kailas-cloud/artfeed/internal/domain/comment"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
	"github.com/kailas-cloud/artfeed/internal/logger"
	commentrepo "github.com/kailas-cloud/artfeed/internal/repository/comment"
	itemrepo "github.com/kailas-cloud/artfeed/internal/repository/item"
	likerepo "github.com/kailas-cloud/artfeed/internal/repository/like"
	"github.com/kailas-cloud/artfeed/internal/transport/static"
	"github.com/kailas-cloud/artfeed/internal/transport/supabase"
	"github.com/kailas-cloud/artfeed/internal/usecase/blob"
	commentuc "github.com/kailas-cloud/artfeed/internal/usecase/comment"
	engagementuc "github.com/kailas-cloud/artfeed/internal/usecase/engagement"
	feeduc "github.com/kailas-cloud/artfeed/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/artfeed/internal/usecase/health"
	publishuc "github.com/kailas-cloud/artfeed/internal/usecase/publish"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped out in tests.
type publishUseCase interface {
	Publish(ctx context.Context, d domitem.Draft) (domitem.Item, error)
}

type feedUseCase interface {
	Query(ctx context.Context, f feeduc.Filter, cursor string, pageSize int) (feeduc.Page, error)
	Item(ctx context.Context, id, viewerID string) (feeduc.Detail, error)
}

type engagementUseCase interface {
	Toggle(ctx context.Context, itemID, userID string) (domlike.Outcome, error)
	Liked(ctx context.Context, itemID, userID string) (bool, error)
	Audit(ctx context.Context, itemID string) (domlike.Audit, error)
}

type commentUseCase interface {
	Add(ctx context.Context, itemID, userID, content string) (domcomment.Comment, error)
	List(ctx context.Context, itemID, cursor string, limit int) (commentuc.Page, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the artfeed entry point.
type Client struct {
	store      db.Store
	publish    publishUseCase
	feed       feedUseCase
	engagement engagementUseCase
	comments   commentUseCase
	health     healthUseCase
	obs        *observer
}

// New creates a Client, waits for the store and ensures the search indexes.
// The provided context bounds the startup work.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("artfeed: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		if len(cfg.addrs) == 0 {
			return nil, errors.New("artfeed: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("artfeed: create redis store: %w", err)
		}
		return s, nil
	case "memory":
		var opts []memory.Option
		if cfg.clock != nil {
			opts = append(opts, memory.WithClock(cfg.clock))
		}
		return memory.NewStore(opts...), nil
	case "":
		return nil, errors.New("artfeed: database required (use WithRedis or WithMemory)")
	default:
		return nil, fmt.Errorf("artfeed: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	items := itemrepo.New(store, cfg.maxTieGroup)
	comments := commentrepo.New(store, cfg.maxTieGroup)
	likes := likerepo.New(store)
	if err := items.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("artfeed: ensure item index: %w", err)
	}
	if err := comments.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("artfeed: ensure comment index: %w", err)
	}
	if err := likes.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("artfeed: ensure like index: %w", err)
	}

	urls, blobHealth, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	feedSvc := feeduc.New(items, likes, urls)
	commentSvc := commentuc.New(comments, items, store)
	if cfg.defaultPageSize > 0 || cfg.maxPageSize > 0 {
		feedSvc = feedSvc.WithPagination(cfg.defaultPageSize, cfg.maxPageSize)
		commentSvc = commentSvc.WithPagination(cfg.defaultPageSize, cfg.maxPageSize)
	}
	if cfg.maxScanPages > 0 {
		feedSvc = feedSvc.WithMaxScanPages(cfg.maxScanPages)
	}
	engagementSvc := engagementuc.New(likes, store)
	if cfg.maxAttempts > 0 {
		engagementSvc = engagementSvc.WithMaxAttempts(cfg.maxAttempts)
	}

	return &Client{
		store:      store,
		publish:    publishuc.New(items, store),
		feed:       feedSvc,
		engagement: engagementSvc,
		comments:   commentSvc,
		health:     healthuc.New(store, blobHealth),
		obs:        obs,
	}, nil
}

// buildResolver picks the base resolver (custom > supabase > static > none)
// and wraps it in the configured decorators.
func buildResolver(cfg *clientConfig) (domain.URLResolver, healthuc.BlobChecker, error) {
	var base domain.URLResolver
	switch {
	case cfg.urls != nil:
		base = cfg.urls
	case cfg.supabase != nil:
		r, err := supabase.NewResolver(&supabase.Config{
			URL:       cfg.supabase.url,
			Key:       cfg.supabase.key,
			Bucket:    cfg.supabase.bucket,
			SignedTTL: cfg.supabase.signedTTL,
			Logger:    cfg.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("artfeed: supabase resolver: %w", err)
		}
		base = r
	case cfg.staticURL != "":
		r, err := static.NewResolver(cfg.staticURL)
		if err != nil {
			return nil, nil, fmt.Errorf("artfeed: static resolver: %w", err)
		}
		base = r
	default:
		return nil, nil, nil
	}

	chain := blob.ChainOptions{CacheSize: cfg.cacheSize, CacheTTL: cfg.cacheTTL, Logger: cfg.logger}
	if cfg.breaker {
		bc := blob.DefaultBreakerConfig("blob")
		chain.Breaker = &bc
	}
	urls, br := blob.Chain(base, chain)
	if br == nil {
		return urls, nil, nil
	}
	return urls, br, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health reports database and blob store health.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

// Publish validates and stores a new item.
func (c *Client) Publish(ctx context.Context, d Draft) (_ Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("publish", start, err) }()

	it, err := c.publish.Publish(c.ctx(ctx), toInternalDraft(&d))
	if err != nil {
		return Item{}, err
	}
	return fromInternalItem(&it), nil
}

// Feed returns one feed page. Pass the previous page's NextCursor to continue;
// a cursor is only valid with the filter it was issued for.
func (c *Client) Feed(ctx context.Context, f Filter, cursor string, pageSize int) (_ FeedPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feed", start, err) }()

	p, err := c.feed.Query(c.ctx(ctx), feeduc.Filter{Tags: f.Tags, Keyword: f.Keyword}, cursor, pageSize)
	if err != nil {
		return FeedPage{}, err
	}
	return fromFeedPage(&p), nil
}

// Item returns one item with its view URL. viewerID may be empty.
func (c *Client) Item(ctx context.Context, id, viewerID string) (_ ItemDetail, err error) {
	start := time.Now()
	defer func() { c.obs.observe("item", start, err) }()

	d, err := c.feed.Item(c.ctx(ctx), id, viewerID)
	if err != nil {
		return ItemDetail{}, err
	}
	return fromDetail(&d), nil
}

// ToggleLike likes the item for userID, or removes the like if it exists.
func (c *Client) ToggleLike(ctx context.Context, itemID, userID string) (_ LikeResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("toggle_like", start, err) }()

	out, err := c.engagement.Toggle(c.ctx(ctx), itemID, userID)
	if err != nil {
		return LikeResult{}, err
	}
	return fromOutcome(out), nil
}

// Liked reports whether userID likes the item.
func (c *Client) Liked(ctx context.Context, itemID, userID string) (_ bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("liked", start, err) }()

	return c.engagement.Liked(c.ctx(ctx), itemID, userID)
}

// AuditLikes recounts an item's like memberships against its counter.
func (c *Client) AuditLikes(ctx context.Context, itemID string) (_ LikeAudit, err error) {
	start := time.Now()
	defer func() { c.obs.observe("audit_likes", start, err) }()

	a, err := c.engagement.Audit(c.ctx(ctx), itemID)
	if err != nil {
		return LikeAudit{}, err
	}
	return fromAudit(a), nil
}

// AddComment posts a comment on an item.
func (c *Client) AddComment(ctx context.Context, itemID, userID, content string) (_ Comment, err error) {
	start := time.Now()
	defer func() { c.obs.observe("add_comment", start, err) }()

	cm, err := c.comments.Add(c.ctx(ctx), itemID, userID, content)
	if err != nil {
		return Comment{}, err
	}
	return fromComment(&cm), nil
}

// Comments lists an item's comments oldest first.
func (c *Client) Comments(ctx context.Context, itemID, cursor string, limit int) (_ CommentPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("comments", start, err) }()

	p, err := c.comments.List(c.ctx(ctx), itemID, cursor, limit)
	if err != nil {
		return CommentPage{}, err
	}
	return fromCommentPage(&p), nil
}

// ctx hands the client logger to the use cases.
func (c *Client) ctx(ctx context.Context) context.Context {
	if c.obs == nil || c.obs.logger == nil {
		return ctx
	}
	return logger.ContextWithLogger(ctx, c.obs.logger)
}
