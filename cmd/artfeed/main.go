package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/config"
	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/db/memory"
	dbRedis "github.com/kailas-cloud/artfeed/internal/db/redis"
	"github.com/kailas-cloud/artfeed/internal/domain"
	logpkg "github.com/kailas-cloud/artfeed/internal/logger"
	"github.com/kailas-cloud/artfeed/internal/metrics"
	commentrepo "github.com/kailas-cloud/artfeed/internal/repository/comment"
	itemrepo "github.com/kailas-cloud/artfeed/internal/repository/item"
	likerepo "github.com/kailas-cloud/artfeed/internal/repository/like"
	chiTransport "github.com/kailas-cloud/artfeed/internal/transport/chi"
	"github.com/kailas-cloud/artfeed/internal/transport/static"
	"github.com/kailas-cloud/artfeed/internal/transport/supabase"
	"github.com/kailas-cloud/artfeed/internal/usecase/blob"
	commentuc "github.com/kailas-cloud/artfeed/internal/usecase/comment"
	engagementuc "github.com/kailas-cloud/artfeed/internal/usecase/engagement"
	feeduc "github.com/kailas-cloud/artfeed/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/artfeed/internal/usecase/health"
	publishuc "github.com/kailas-cloud/artfeed/internal/usecase/publish"
	"github.com/kailas-cloud/artfeed/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting artfeed API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("blob_driver", cfg.Blob.Driver),
	)

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		logger.Warn("Using the in-process store; data is lost on restart")
		store = memory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterDomainMetrics()

	items := itemrepo.New(store, cfg.Feed.MaxTieGroup)
	comments := commentrepo.New(store, cfg.Feed.MaxTieGroup)
	likes := likerepo.New(store)
	if err := items.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure item index", zap.Error(err))
	}
	if err := comments.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure comment index", zap.Error(err))
	}
	if err := likes.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure like index", zap.Error(err))
	}

	urls, blobHealth := buildResolver(&cfg.Blob, logger)

	publishSvc := publishuc.New(items, store)
	feedSvc := feeduc.New(items, likes, urls).
		WithPagination(cfg.Feed.DefaultPageSize, cfg.Feed.MaxPageSize).
		WithMaxScanPages(cfg.Feed.MaxScanPages)
	engagementSvc := engagementuc.New(likes, store).WithMaxAttempts(cfg.Engagement.MaxAttempts)
	commentSvc := commentuc.New(comments, items, store).
		WithPagination(cfg.Feed.DefaultPageSize, cfg.Feed.MaxPageSize)
	healthSvc := healthuc.New(store, blobHealth)

	server := chiTransport.NewServer(publishSvc, feedSvc, engagementSvc, commentSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildResolver assembles the URL resolver chain: driver -> Breaker -> Cached.
// The second result is nil when no health check applies.
func buildResolver(cfg *config.BlobConfig, logger *zap.Logger) (domain.URLResolver, healthuc.BlobChecker) {
	var base domain.URLResolver
	switch cfg.Driver {
	case "supabase":
		r, err := supabase.NewResolver(&supabase.Config{
			URL:       cfg.Supabase.URL,
			Key:       cfg.Supabase.Key,
			Bucket:    cfg.Supabase.Bucket,
			SignedTTL: time.Duration(cfg.Supabase.SignedTTLSec) * time.Second,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatal("Failed to create supabase resolver", zap.Error(err))
		}
		base = r
	default:
		r, err := static.NewResolver(cfg.BaseURL)
		if err != nil {
			logger.Fatal("Failed to create static resolver", zap.Error(err))
		}
		base = r
	}

	opts := blob.ChainOptions{
		CacheSize: cfg.Cache.Size,
		CacheTTL:  time.Duration(cfg.Cache.TTLSec) * time.Second,
		Logger:    logger,
	}
	if cfg.Breaker.Enabled {
		bc := blob.DefaultBreakerConfig("blob_" + cfg.Driver)
		bc.MinRequests = cfg.Breaker.MinRequests
		bc.FailureThreshold = cfg.Breaker.FailureThreshold
		bc.Timeout = time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second
		opts.Breaker = &bc
	}

	urls, br := blob.Chain(base, opts)
	logger.Info("Blob resolver created",
		zap.String("driver", cfg.Driver),
		zap.Int("cache_size", cfg.Cache.Size),
		zap.Bool("breaker", br != nil),
	)
	if br == nil {
		return urls, nil
	}
	return urls, br
}
