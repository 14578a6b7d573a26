package blob

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/logger"
	"github.com/kailas-cloud/artfeed/internal/metrics"
)

// URLOrPlaceholder resolves path and degrades to domain.PlaceholderURL on any
// failure. The failure is logged and counted; it never reaches the caller.
func URLOrPlaceholder(ctx context.Context, r domain.URLResolver, path string) string {
	if r == nil || path == "" {
		metrics.BlobPlaceholderTotal.Inc()
		return domain.PlaceholderURL
	}
	u, err := r.ResolveURL(ctx, path)
	if err != nil {
		metrics.BlobPlaceholderTotal.Inc()
		logger.FromContext(ctx).Warn("Blob URL resolution failed, using placeholder",
			zap.String("path", path),
			zap.Error(err),
		)
		return domain.PlaceholderURL
	}
	return u
}
