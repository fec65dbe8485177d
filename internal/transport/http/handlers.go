package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/audit"
	"github.com/vendasol/vendasol/internal/entity"
	"github.com/vendasol/vendasol/internal/observability/metrics"
	"github.com/vendasol/vendasol/internal/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	resolver     *session.Resolver
	registry     *access.Registry
	repositories map[access.Entity]*entity.Repository
	auditLogger  audit.Logger
	cookieName   string

	listRequests metric.Int64Counter
	listFailures metric.Int64Counter
}

// NewHandler creates a new HTTP handler. One repository per entity type;
// the set of map keys is the set of served entity types.
func NewHandler(
	resolver *session.Resolver,
	registry *access.Registry,
	repositories map[access.Entity]*entity.Repository,
	auditLogger audit.Logger,
	cookieName string,
	meter *metrics.Meter,
) *Handler {
	h := &Handler{
		resolver:     resolver,
		registry:     registry,
		repositories: repositories,
		auditLogger:  auditLogger,
		cookieName:   cookieName,
	}

	// Instrument creation against a no-op meter never fails; ignore is safe.
	h.listRequests, _ = meter.CreateCounter("list_requests_total", "Relation list requests served")
	h.listFailures, _ = meter.CreateCounter("list_failures_total", "Relation list requests failed")

	return h
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// One parameterized route serves every (entity, relation) pair the
	// registry declares; undeclared pairs 404 inside the handler.
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/{entityType}/{relationKind}/{relationID}", h.ListByRelation)
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "vendasol",
	})
}

// Response envelopes. Every data response is
// {"status":"success","data":[...]}; every failure is
// {"status":"error","message":...} with an optional generic "error" detail.

type dataEnvelope struct {
	Status string          `json:"status"`
	Data   []entity.Record `json:"data"`
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, records []entity.Record) {
	if records == nil {
		// An empty relation is success; the envelope always carries an array.
		records = []entity.Record{}
	}
	respondJSON(w, http.StatusOK, dataEnvelope{Status: "success", Data: records})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorEnvelope{Status: "error", Message: message})
}

func respondInternalError(w http.ResponseWriter, detail string) {
	respondJSON(w, http.StatusInternalServerError, errorEnvelope{
		Status:  "error",
		Message: "internal error",
		Error:   detail,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
