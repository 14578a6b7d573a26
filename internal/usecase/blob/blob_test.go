package blob

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"

	"github.com/kailas-cloud/artfeed/internal/domain"
)

// countingResolver counts calls and fails for paths in fail.
type countingResolver struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (r *countingResolver) ResolveURL(_ context.Context, path string) (string, error) {
	r.calls.Add(1)
	if r.fail[path] {
		return "", domain.NewDependency("test", errors.New("unavailable"))
	}
	return "https://cdn/" + path, nil
}

func newCacheTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

// --- Cached ---

func TestCached_HitAfterMiss(t *testing.T) {
	inner := &countingResolver{}
	total := newCacheTotal()
	c := NewCached(inner, 8, time.Minute, total)

	for i := 0; i < 3; i++ {
		u, err := c.ResolveURL(context.Background(), "a.webp")
		if err != nil || u != "https://cdn/a.webp" {
			t.Fatalf("resolve: %q %v", u, err)
		}
	}
	if inner.calls.Load() != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls.Load())
	}
	if got := testutil.ToFloat64(total.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %f, want 2", got)
	}
	if got := testutil.ToFloat64(total.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %f, want 1", got)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingResolver{fail: map[string]bool{"bad": true}}
	c := NewCached(inner, 8, time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.ResolveURL(context.Background(), "bad"); !errors.Is(err, domain.ErrDependency) {
			t.Fatalf("expected ErrDependency, got %v", err)
		}
	}
	if inner.calls.Load() != 2 || c.Len() != 0 {
		t.Errorf("calls=%d len=%d", inner.calls.Load(), c.Len())
	}
}

func TestCached_Expires(t *testing.T) {
	inner := &countingResolver{}
	c := NewCached(inner, 8, 10*time.Millisecond, nil)

	_, _ = c.ResolveURL(context.Background(), "a")
	time.Sleep(50 * time.Millisecond)
	_, _ = c.ResolveURL(context.Background(), "a")

	if inner.calls.Load() != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls.Load())
	}
}

// --- Breaker ---

func TestBreaker_OpensAfterFailures(t *testing.T) {
	inner := &countingResolver{fail: map[string]bool{"x": true}}
	cfg := DefaultBreakerConfig("test-open")
	cfg.MinRequests = 3
	cfg.Timeout = time.Hour
	b := NewBreaker(inner, cfg, nil)

	for i := 0; i < 3; i++ {
		_, _ = b.ResolveURL(context.Background(), "x")
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.HealthCheck(context.Background()); !errors.Is(err, domain.ErrDependency) {
		t.Errorf("health check while open: %v", err)
	}

	_, err := b.ResolveURL(context.Background(), "ok")
	if !errors.Is(err, domain.ErrDependency) {
		t.Fatalf("expected ErrDependency while open, got %v", err)
	}
	if inner.calls.Load() != 3 {
		t.Errorf("open breaker must not call inner, calls=%d", inner.calls.Load())
	}
}

func TestBreaker_ValidationDoesNotTrip(t *testing.T) {
	inner := domain.URLResolverFunc(func(context.Context, string) (string, error) {
		return "", domain.NewValidation("path", "is required")
	})
	cfg := DefaultBreakerConfig("test-validation")
	cfg.MinRequests = 2
	b := NewBreaker(inner, cfg, nil)

	for i := 0; i < 5; i++ {
		if _, err := b.ResolveURL(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreaker_PassesThrough(t *testing.T) {
	b := NewBreaker(&countingResolver{}, DefaultBreakerConfig("test-pass"), nil)
	u, err := b.ResolveURL(context.Background(), "a")
	if err != nil || u != "https://cdn/a" {
		t.Fatalf("got %q, %v", u, err)
	}
	if err := b.HealthCheck(context.Background()); err != nil {
		t.Errorf("closed breaker must be healthy: %v", err)
	}
}

// --- URLOrPlaceholder ---

func TestURLOrPlaceholder(t *testing.T) {
	r := &countingResolver{fail: map[string]bool{"bad": true}}
	ctx := context.Background()

	if got := URLOrPlaceholder(ctx, r, "good"); got != "https://cdn/good" {
		t.Errorf("good = %s", got)
	}
	if got := URLOrPlaceholder(ctx, r, "bad"); got != domain.PlaceholderURL {
		t.Errorf("bad = %s", got)
	}
	if got := URLOrPlaceholder(ctx, r, ""); got != domain.PlaceholderURL {
		t.Errorf("empty = %s", got)
	}
	if got := URLOrPlaceholder(ctx, nil, "good"); got != domain.PlaceholderURL {
		t.Errorf("nil resolver = %s", got)
	}
}

func TestChain(t *testing.T) {
	base := &countingResolver{}
	cfg := DefaultBreakerConfig("chain-test")

	r, br := Chain(base, ChainOptions{CacheSize: 8, CacheTTL: time.Minute, Breaker: &cfg})
	if br == nil {
		t.Fatal("expected breaker")
	}
	if _, ok := r.(*Cached); !ok {
		t.Fatalf("outermost decorator = %T, want *Cached", r)
	}
	for range 3 {
		if _, err := r.ResolveURL(context.Background(), "a.png"); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if base.calls.Load() != 1 {
		t.Errorf("base calls = %d, want 1", base.calls.Load())
	}

	plain, br := Chain(base, ChainOptions{})
	if br != nil || plain != domain.URLResolver(base) {
		t.Error("empty options must return the base resolver")
	}
}
