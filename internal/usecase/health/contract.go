package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BlobChecker reports whether blob URLs can currently be resolved.
type BlobChecker interface {
	HealthCheck(ctx context.Context) error
}
