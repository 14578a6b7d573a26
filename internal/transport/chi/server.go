package chi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/artfeed/internal/domain"
	commentuc "github.com/kailas-cloud/artfeed/internal/usecase/comment"
	engagementuc "github.com/kailas-cloud/artfeed/internal/usecase/engagement"
	feeduc "github.com/kailas-cloud/artfeed/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/artfeed/internal/usecase/health"
	publishuc "github.com/kailas-cloud/artfeed/internal/usecase/publish"
	"github.com/kailas-cloud/artfeed/internal/version"
)

const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers of the artfeed API.
type Server struct {
	publish    *publishuc.Service
	feed       *feeduc.Service
	engagement *engagementuc.Service
	comments   *commentuc.Service
	health     *healthuc.Service
	logger     *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	publish *publishuc.Service,
	feed *feeduc.Service,
	engagement *engagementuc.Service,
	comments *commentuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		publish:    publish,
		feed:       feed,
		engagement: engagement,
		comments:   comments,
		health:     health,
		logger:     logger,
	}
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/feed", s.Feed)
	r.Route("/items", func(r chi.Router) {
		r.Post("/", s.PublishItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetItem)
			r.Post("/like", s.ToggleLike)
			r.Get("/like", s.GetLike)
			r.Get("/likes/audit", s.AuditLikes)
			r.Post("/comments", s.AddComment)
			r.Get("/comments", s.ListComments)
		})
	})
}

// PublishItem handles POST /items.
func (s *Server) PublishItem(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateStruct(&req); err != nil {
		handleDomainError(w, r, err)
		return
	}

	it, err := s.publish.Publish(r.Context(), req.draft(actorID(r)))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/items/"+it.ID())
	writeJSON(w, http.StatusCreated, itemToResponse(&it))
}

// GetItem handles GET /items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	d, err := s.feed.Item(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	resp := detailResponse{itemResponse: itemToResponse(&d.Item), LikedByViewer: d.LikedByViewer}
	resp.ViewURL = d.ViewURL
	writeJSON(w, http.StatusOK, resp)
}

// Feed handles GET /feed?tags=a,b&q=text&cursor=...&limit=n.
func (s *Server) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pq, err := bindPageQuery(q)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	tags, err := bindTags(q)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	req := feedQuery{pageQuery: pq, Tags: tags, Keyword: q.Get("q")}
	if err := validateStruct(&req); err != nil {
		handleDomainError(w, r, err)
		return
	}

	p, err := s.feed.Query(r.Context(), feeduc.Filter{Tags: req.Tags, Keyword: req.Keyword}, req.Cursor, req.Limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedToResponse(&p))
}

// ToggleLike handles POST /items/{id}/like.
func (s *Server) ToggleLike(w http.ResponseWriter, r *http.Request) {
	out, err := s.engagement.Toggle(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeToResponse(out))
}

// GetLike handles GET /items/{id}/like.
func (s *Server) GetLike(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	liked, err := s.engagement.Liked(r.Context(), id, actorID(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likedResponse{ItemID: id, Liked: liked})
}

// AuditLikes handles GET /items/{id}/likes/audit.
func (s *Server) AuditLikes(w http.ResponseWriter, r *http.Request) {
	a, err := s.engagement.Audit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{
		ItemID:     a.ItemID,
		LikeCount:  a.LikeCount,
		Members:    a.Members,
		Consistent: a.Consistent(),
	})
}

// AddComment handles POST /items/{id}/comments.
func (s *Server) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateStruct(&req); err != nil {
		handleDomainError(w, r, err)
		return
	}

	c, err := s.comments.Add(r.Context(), chi.URLParam(r, "id"), actorID(r), req.Content)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentToResponse(&c))
}

// ListComments handles GET /items/{id}/comments.
func (s *Server) ListComments(w http.ResponseWriter, r *http.Request) {
	pq, err := bindPageQuery(r.URL.Query())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := validateStruct(&pq); err != nil {
		handleDomainError(w, r, err)
		return
	}

	p, err := s.comments.List(r.Context(), chi.URLParam(r, "id"), pq.Cursor, pq.Limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentPageToResponse(&p))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// bindPageQuery binds the form-style limit and cursor query parameters.
func bindPageQuery(q url.Values) (pageQuery, error) {
	var (
		limit  *int
		cursor *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return pageQuery{}, domain.NewValidation("limit", "must be a single integer")
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", q, &cursor); err != nil {
		return pageQuery{}, domain.NewValidation("cursor", "%v", err)
	}
	var pq pageQuery
	if limit != nil {
		pq.Limit = *limit
	}
	if cursor != nil {
		pq.Cursor = *cursor
	}
	return pq, nil
}

// bindTags accepts both ?tags=a,b and the exploded ?tags=a&tags=b.
func bindTags(q url.Values) ([]string, error) {
	var tags *[]string
	explode := len(q["tags"]) > 1
	if err := runtime.BindQueryParameter("form", explode, false, "tags", q, &tags); err != nil {
		return nil, domain.NewValidation("tags", "%v", err)
	}
	if tags == nil {
		return nil, nil
	}
	out := make([]string, 0, len(*tags))
	for _, t := range *tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
