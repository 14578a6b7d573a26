package blob

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/metrics"
)

// ChainOptions selects the decorators around a base resolver.
type ChainOptions struct {
	// CacheSize 0 disables the URL cache.
	CacheSize int
	CacheTTL  time.Duration
	// Breaker nil disables the circuit breaker.
	Breaker *BreakerConfig
	Logger  *zap.Logger
}

// Chain assembles the decorator chain: base -> Breaker -> Cached.
// Cache hits never reach the breaker. The breaker is returned for health
// checks and is nil when disabled.
func Chain(base domain.URLResolver, opts ChainOptions) (domain.URLResolver, *Breaker) {
	r := base
	var br *Breaker
	if opts.Breaker != nil {
		br = NewBreaker(r, *opts.Breaker, opts.Logger)
		r = br
	}
	if opts.CacheSize > 0 {
		r = NewCached(r, opts.CacheSize, opts.CacheTTL, metrics.BlobCacheTotal)
	}
	return r, br
}
