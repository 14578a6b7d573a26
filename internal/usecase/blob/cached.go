// Package blob decorates URL resolvers with caching, a circuit breaker and
// the placeholder fallback used by every read path.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/artfeed/internal/domain"
)

// Cached memoizes resolved URLs in an expirable LRU. Only successes are cached.
// The TTL must stay below the lifetime of signed URLs.
type Cached struct {
	inner      domain.URLResolver
	cache      *expirable.LRU[string, string]
	cacheTotal *prometheus.CounterVec
}

// NewCached creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func NewCached(inner domain.URLResolver, size int, ttl time.Duration, cacheTotal *prometheus.CounterVec) *Cached {
	if size <= 0 {
		size = 1024
	}
	return &Cached{
		inner:      inner,
		cache:      expirable.NewLRU[string, string](size, nil, ttl),
		cacheTotal: cacheTotal,
	}
}

// ResolveURL implements domain.URLResolver.
func (c *Cached) ResolveURL(ctx context.Context, path string) (string, error) {
	if u, ok := c.cache.Get(path); ok {
		c.inc("hit")
		return u, nil
	}
	c.inc("miss")

	u, err := c.inner.ResolveURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	c.cache.Add(path, u)
	return u, nil
}

// Len returns the number of cached URLs.
func (c *Cached) Len() int { return c.cache.Len() }

func (c *Cached) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
