package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Viewer label values.
const (
	ViewerAnonymous  = "anonymous"
	ViewerIdentified = "identified"
)

const unmatchedRoute = "unmatched"

var (
	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artfeed",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of artfeed API requests by route and status class",
			Buckets:   []float64{0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"route", "status_class"},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "artfeed API requests by method, route, status and viewer kind",
		},
		[]string{"method", "route", "status", "viewer"},
	)

	apiInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "artfeed",
		Subsystem: "api",
		Name:      "requests_in_flight",
		Help:      "artfeed API requests currently being served",
	})
)

func init() {
	prometheus.MustRegister(apiLatency, apiRequests, apiInFlight)
}

// APIMetrics records latency, volume and concurrency of API requests. Routes
// are labelled by their chi pattern, so /items/{id} is one series no matter
// how many items exist. viewerHeader names the header that carries the
// caller's user id; its presence splits traffic into anonymous and identified.
func APIMetrics(viewerHeader string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiInFlight.Inc()
			defer apiInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routeLabel(r)
			viewer := ViewerAnonymous
			if r.Header.Get(viewerHeader) != "" {
				viewer = ViewerIdentified
			}
			apiLatency.WithLabelValues(route, statusClass(rec.status)).Observe(time.Since(start).Seconds())
			apiRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status), viewer).Inc()
		})
	}
}

func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// statusClass folds a status code into 2xx, 4xx and so on.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

// statusRecorder keeps the first status written to the response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
