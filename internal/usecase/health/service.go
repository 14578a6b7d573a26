package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db   DBPinger
	blob BlobChecker
}

// New creates a Service. blob can be nil.
func New(db DBPinger, blob BlobChecker) *Service {
	return &Service{db: db, blob: blob}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.blob != nil {
		if err := s.blob.HealthCheck(ctx); err != nil {
			checks["blob"] = CheckError
		} else {
			checks["blob"] = CheckOK
		}
	}

	// Without the database nothing works; a broken blob store only costs images.
	status := Healthy
	switch {
	case checks["database"] == CheckError:
		status = Unhealthy
	case checks["blob"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
