package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lazypower/cadence/internal/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// requireAuth rejects requests without a valid bearer token and stores the
// authenticated user ID on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.auth.Verify(token)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user ID from the request context.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

var httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cadence",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests served, by status code.",
}, []string{"code"})

func init() {
	prometheus.MustRegister(httpRequestsTotal)
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		httpRequestsTotal.WithLabelValues(strconv.Itoa(ww.Status())).Inc()
	})
}
