package artfeed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "redis" or "memory"
	addrs    []string
	password string
	clock    func() time.Time

	urls      URLResolver
	staticURL string
	supabase  *supabaseConfig
	cacheSize int
	cacheTTL  time.Duration
	breaker   bool

	defaultPageSize int
	maxPageSize     int
	maxScanPages    int
	maxTieGroup     int
	maxAttempts     int

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

type supabaseConfig struct {
	url, key, bucket string
	signedTTL        time.Duration
}

// WithRedis connects the client to a Redis 8 instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster connects the client to several Redis nodes. A like toggle
// only touches keys hash-tagged with the item id, so its transaction stays on
// one slot. The nodes must serve FT.SEARCH across the cluster.
func WithRedisCluster(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
		c.password = password
	})
}

// WithMemory keeps all data in process. Intended for tests and demos.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithMemoryClock overrides the clock of the in-process store.
func WithMemoryClock(clock func() time.Time) Option {
	return optionFunc(func(c *clientConfig) {
		c.clock = clock
	})
}

// WithURLResolver sets a custom image URL resolver.
func WithURLResolver(r URLResolver) Option {
	return optionFunc(func(c *clientConfig) {
		c.urls = r
	})
}

// WithStaticURLs resolves image paths against a public base URL.
func WithStaticURLs(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.staticURL = baseURL
	})
}

// WithSupabase resolves image paths to signed Supabase Storage URLs.
func WithSupabase(url, key, bucket string, signedTTL time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.supabase = &supabaseConfig{url: url, key: key, bucket: bucket, signedTTL: signedTTL}
	})
}

// WithURLCache caches resolved URLs. ttl must stay below the signed URL lifetime.
func WithURLCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	})
}

// WithCircuitBreaker stops calling a failing blob store for a while.
func WithCircuitBreaker() Option {
	return optionFunc(func(c *clientConfig) {
		c.breaker = true
	})
}

// WithPageSizes sets the default and maximum page size. Defaults: 20 and 100.
func WithPageSizes(defaultSize, maxSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultPageSize = defaultSize
		c.maxPageSize = maxSize
	})
}

// WithMaxScanPages bounds the store pages one multi-tag feed page may examine. Default: 5.
func WithMaxScanPages(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxScanPages = n
	})
}

// WithMaxTieGroup bounds how many items may share one timestamp. Default: 1000.
func WithMaxTieGroup(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTieGroup = n
	})
}

// WithMaxAttempts sets how many times a contended like toggle is retried. Default: 16.
func WithMaxAttempts(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = n
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
