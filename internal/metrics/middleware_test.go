package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const viewerHeader = "X-User-ID"

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(APIMetrics(viewerHeader))
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/items/{id}/like", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/feed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	return r
}

func serve(r http.Handler, method, path, viewer string) {
	req := httptest.NewRequest(method, path, http.NoBody)
	if viewer != "" {
		req.Header.Set(viewerHeader, viewer)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAPIMetrics_UsesRoutePattern(t *testing.T) {
	r := newRouter()
	for _, id := range []string{"a", "b", "c"} {
		serve(r, http.MethodGet, "/items/"+id, "")
	}

	if got := testutil.ToFloat64(apiRequests.WithLabelValues("GET", "/items/{id}", "200", ViewerAnonymous)); got < 3 {
		t.Errorf("expected >= 3 requests under the route pattern, got %f", got)
	}
	if got := testutil.CollectAndCount(apiLatency); got == 0 {
		t.Error("expected latency observations")
	}
}

func TestAPIMetrics_StatusAndViewer(t *testing.T) {
	r := newRouter()
	tests := []struct {
		method, path, viewer       string
		route, status, viewerLabel string
	}{
		{http.MethodPost, "/items/x/like", "u-1", "/items/{id}/like", "409", ViewerIdentified},
		{http.MethodGet, "/feed", "", "/feed", "200", ViewerAnonymous},
		{http.MethodGet, "/feed", "u-2", "/feed", "200", ViewerIdentified},
	}
	for _, tc := range tests {
		t.Run(tc.path+" "+tc.viewerLabel, func(t *testing.T) {
			serve(r, tc.method, tc.path, tc.viewer)
			got := testutil.ToFloat64(apiRequests.WithLabelValues(tc.method, tc.route, tc.status, tc.viewerLabel))
			if got < 1 {
				t.Errorf("expected a %s sample for %s (%s), got %f", tc.status, tc.route, tc.viewerLabel, got)
			}
		})
	}
}

func TestAPIMetrics_UnmatchedRoute(t *testing.T) {
	r := newRouter()
	serve(r, http.MethodGet, "/nope", "")
	if got := testutil.ToFloat64(apiRequests.WithLabelValues("GET", unmatchedRoute, "404", ViewerAnonymous)); got < 1 {
		t.Errorf("expected unmatched sample, got %f", got)
	}
}

func TestAPIMetrics_InFlightSettles(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIMetrics(viewerHeader))
	var during float64
	r.Get("/feed", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(apiInFlight)
		w.WriteHeader(http.StatusOK)
	})
	before := testutil.ToFloat64(apiInFlight)
	serve(r, http.MethodGet, "/feed", "")

	if during != before+1 {
		t.Errorf("in flight during request = %f, want %f", during, before+1)
	}
	if after := testutil.ToFloat64(apiInFlight); after != before {
		t.Errorf("in flight after request = %f, want %f", after, before)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 409: "4xx", 502: "5xx", 42: "other"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestRegisterDomainMetrics_Idempotent(t *testing.T) {
	RegisterDomainMetrics()
	RegisterDomainMetrics()

	FeedQueriesTotal.WithLabelValues("tag").Inc()
	if got := testutil.ToFloat64(FeedQueriesTotal.WithLabelValues("tag")); got < 1 {
		t.Errorf("expected feed query sample, got %f", got)
	}
}
