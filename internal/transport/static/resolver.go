// Package static resolves blob paths against a public base URL (CDN or bucket
// served without signing).
package static

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/metrics"
)

const driver = "static"

// Resolver joins paths onto a base URL.
type Resolver struct {
	base *url.URL
}

// NewResolver parses the base URL.
func NewResolver(baseURL string) (*Resolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" && !strings.HasPrefix(baseURL, "/") {
		return nil, fmt.Errorf("base url %q must be absolute or start with /", baseURL)
	}
	return &Resolver{base: u}, nil
}

// ResolveURL implements domain.URLResolver.
func (r *Resolver) ResolveURL(_ context.Context, path string) (string, error) {
	if path == "" {
		metrics.BlobResolveTotal.WithLabelValues(driver, "error").Inc()
		return "", domain.NewValidation("path", "is required")
	}
	metrics.BlobResolveTotal.WithLabelValues(driver, "success").Inc()
	return r.base.JoinPath(strings.TrimLeft(path, "/")).String(), nil
}
