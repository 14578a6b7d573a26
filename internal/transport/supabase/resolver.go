// Package supabase resolves blob paths to signed Supabase Storage URLs.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/metrics"
)

const driver = "supabase"

// signFunc asks the storage API for a signed URL of bucket/path valid for expiresIn seconds.
type signFunc func(bucket, path string, expiresIn int) (string, error)

// Config holds the storage settings.
type Config struct {
	URL       string
	Key       string
	Bucket    string
	SignedTTL time.Duration
	Logger    *zap.Logger
}

// Resolver signs download URLs through supabase-go storage.
type Resolver struct {
	sign      signFunc
	baseURL   string
	bucket    string
	expiresIn int
	logger    *zap.Logger
}

// NewResolver creates a Supabase Storage resolver.
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg.URL == "" || cfg.Key == "" || cfg.Bucket == "" {
		return nil, errors.New("supabase url, key and bucket are required")
	}
	client, err := supa.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	sign := func(bucket, path string, expiresIn int) (string, error) {
		resp, err := client.Storage.CreateSignedUrl(bucket, path, expiresIn)
		if err != nil {
			return "", err //nolint:wrapcheck // wrapped by ResolveURL
		}
		return resp.SignedURL, nil
	}
	return newResolver(sign, cfg), nil
}

func newResolver(sign signFunc, cfg *Config) *Resolver {
	ttl := cfg.SignedTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		sign:      sign,
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		bucket:    cfg.Bucket,
		expiresIn: int(ttl.Seconds()),
		logger:    logger,
	}
}

// ResolveURL implements domain.URLResolver.
func (r *Resolver) ResolveURL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", domain.NewValidation("path", "is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	start := time.Now()
	signed, err := r.sign(r.bucket, strings.TrimLeft(path, "/"), r.expiresIn)
	metrics.BlobResolveDuration.WithLabelValues(driver).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BlobResolveTotal.WithLabelValues(driver, "error").Inc()
		return "", domain.NewDependency("supabase.sign", err)
	}
	if signed == "" {
		metrics.BlobResolveTotal.WithLabelValues(driver, "error").Inc()
		return "", domain.NewDependency("supabase.sign", errors.New("empty signed url"))
	}

	metrics.BlobResolveTotal.WithLabelValues(driver, "success").Inc()
	return r.absolute(signed), nil
}

// absolute joins a relative signed path (as the storage API returns it) onto the project URL.
func (r *Resolver) absolute(signed string) string {
	if u, err := url.Parse(signed); err == nil && u.IsAbs() {
		return signed
	}
	if !strings.HasPrefix(signed, "/") {
		signed = "/" + signed
	}
	if !strings.HasPrefix(signed, "/storage/v1/") {
		signed = "/storage/v1" + signed
	}
	return r.baseURL + signed
}
