package adapthttp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"parking/internal/domain"
)

type contextKey string

const roleContextKey contextKey = "role"

// RoleFromContext returns the role placed in ctx by the auth middleware.
func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	r, ok := ctx.Value(roleContextKey).(domain.Role)
	return r, ok
}

// authMiddleware validates the bearer token and admits only allowed roles.
func (s *Server) authMiddleware(allowed domain.RoleSet, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if s.verifier == nil {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		role, err := s.verifier.Verify(r.Context(), raw)
		if err != nil {
			s.log.Debug("token rejected", zap.Error(err))
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		if !allowed.Allows(role) {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}

		ctx := context.WithValue(r.Context(), roleContextKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
