package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rajasatyajit/incidentwatch/internal/events"
	"github.com/rajasatyajit/incidentwatch/internal/feed"
	"github.com/rajasatyajit/incidentwatch/internal/lifecycle"
	middlewares "github.com/rajasatyajit/incidentwatch/internal/middleware"
	"github.com/rajasatyajit/incidentwatch/internal/relevance"
	"github.com/rajasatyajit/incidentwatch/internal/riskwindow"
	"github.com/rajasatyajit/incidentwatch/internal/verification"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// HealthChecker is anything that can report readiness
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Health(ctx context.Context) error { return f(ctx) }

// EventLog exposes recently published broadcast triggers
type EventLog interface {
	Recent(ctx context.Context, n int64) ([]events.Event, error)
}

// Deps are the engine components served over HTTP. Feed, Poller, Events
// and Throttle are optional.
type Deps struct {
	Reports    *lifecycle.Service
	Gate       *verification.Gate
	Classifier *relevance.Classifier
	Policy     *riskwindow.Policy
	Checks     map[string]HealthChecker
	Feed       feed.Searcher
	Poller     *feed.Poller
	Events     EventLog
	Throttle   middlewares.Limiter
}

// Options are the static settings of a Handler
type Options struct {
	AdminSecret    string
	VotesPerMinute int
	Version        string
	BuildTime      string
	GitCommit      string
}

// Handler handles HTTP requests for the API
type Handler struct {
	deps      Deps
	opts      Options
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(deps Deps, opts Options) *Handler {
	if deps.Classifier == nil {
		deps.Classifier = relevance.Default()
	}
	if deps.Policy == nil {
		deps.Policy = riskwindow.Default()
	}
	return &Handler{
		deps:      deps,
		opts:      opts,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)
		r.Get("/version", h.versionHandler)

		r.Post("/reports", h.createReportHandler)
		r.Get("/reports/{id}", h.getReportHandler)
		r.Post("/reports/{id}/photo", h.attachPhotoHandler)
		r.With(middlewares.VoteThrottle(h.deps.Throttle, h.opts.VotesPerMinute)).
			Post("/reports/{id}/confirmations", h.castVoteHandler)
		r.Get("/reports/{id}/confirmations", h.listConfirmationsHandler)

		r.Get("/relevance/route", h.routeRelevanceHandler)
		r.Post("/relevance/route/summary", h.routeSummaryHandler)
		r.Get("/relevance/area", h.areaRelevanceHandler)
		r.Get("/risk-window", h.riskWindowHandler)

		r.Get("/feed", h.feedSearchHandler)
		r.Get("/feed/watched", h.feedWatchedHandler)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.With(middlewares.AdminSecret(h.opts.AdminSecret)).Group(func(r chi.Router) {
			r.Post("/reports/{id}/moderate", h.moderateHandler)
			r.Post("/reports/moderate", h.bulkModerateHandler)
			r.Get("/moderation-actions", h.moderationLogHandler)
			r.Get("/events", h.recentEventsHandler)
		})
	})

	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.opts.Version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]string, len(h.deps.Checks))
	statusCode := http.StatusOK
	status := "ready"

	for name, c := range h.deps.Checks {
		if err := c.Health(ctx); err != nil {
			checks[name] = "error: " + err.Error()
			statusCode = http.StatusServiceUnavailable
			status = "not_ready"
			continue
		}
		checks[name] = "ok"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.opts.Version,
		"build_time": h.opts.BuildTime,
		"git_commit": h.opts.GitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
