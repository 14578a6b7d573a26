package blob

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/metrics"
)

// BreakerConfig tunes the resolver circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      10,
	}
}

// Breaker stops calling a failing blob store for a while so feed pages fall
// back to placeholders immediately instead of waiting on every item.
type Breaker struct {
	inner  domain.URLResolver
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner domain.URLResolver, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{inner: inner, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A bad path is the caller's fault, not the store's.
			return err == nil || errors.Is(err, domain.ErrValidation)
		},
	})
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	return b
}

// ResolveURL implements domain.URLResolver.
func (b *Breaker) ResolveURL(ctx context.Context, path string) (string, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.ResolveURL(ctx, path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", domain.NewDependency("blob.breaker", err)
		}
		return "", err //nolint:wrapcheck // inner error is already wrapped
	}
	return out.(string), nil
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// HealthCheck fails while the breaker is open.
func (b *Breaker) HealthCheck(context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return domain.NewDependency("blob.breaker", gobreaker.ErrOpenState)
	}
	return nil
}
