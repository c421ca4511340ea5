// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"parking/internal/app"
	"parking/internal/domain"
)

// TokenVerifier validates a bearer token and returns the caller role.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domain.Role, error)
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	lots     *app.LotService
	sessions *app.SessionService
	verifier TokenVerifier
	log      *zap.Logger
	metrics  *Metrics
}

// New creates a Server wired to the given application services. A nil logger
// or metrics falls back to a no-op logger and a private registry.
func New(lots *app.LotService, sessions *app.SessionService, verifier TokenVerifier, logger *zap.Logger, metrics *Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Server{lots: lots, sessions: sessions, verifier: verifier, log: logger, metrics: metrics}
}

var (
	readers  = domain.RoleSet{domain.RoleAdmin, domain.RoleManager}
	admins   = domain.RoleSet{domain.RoleAdmin}
	sensors  = domain.RoleSet{domain.RoleAdmin, domain.RoleSystem}
	gateways = domain.RoleSet{domain.RoleSystem}
)

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.route(mux, "GET /parkingLots", readers, s.handleListLots)
	s.route(mux, "GET /parkingLots/{id}", readers, s.handleGetLot)
	s.route(mux, "POST /parkingLots", admins, s.handleCreateLot)
	s.route(mux, "PATCH /parkingLots/{id}", readers, s.handleUpdateLot)
	s.route(mux, "DELETE /parkingLots/{id}", admins, s.handleDeleteLot)
	s.route(mux, "POST /parkingLots/{lotId}/lots/{pos}/occupy", sensors, s.handleOccupy)
	s.route(mux, "POST /parkingLots/{lotId}/lots/{pos}/release", sensors, s.handleRelease)
	s.route(mux, "GET /parkingLots/{id}/occupancy", nil, s.handleOccupancy)

	s.route(mux, "GET /parkingSessions", readers, s.handleListSessions)
	s.route(mux, "POST /parkingSessions/start", gateways, s.handleStartSession)
	s.route(mux, "POST /parkingSessions/end", gateways, s.handleEndSession)

	return s.loggingMiddleware(mux)
}

// route registers h behind role checks and request metrics. A nil role set
// leaves the route public.
func (s *Server) route(mux *http.ServeMux, pattern string, roles domain.RoleSet, h http.HandlerFunc) {
	var handler http.Handler = h
	if roles != nil {
		handler = s.authMiddleware(roles, handler)
	}
	mux.Handle(pattern, s.metrics.instrument(pattern, handler))
}
