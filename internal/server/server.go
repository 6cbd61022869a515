package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/auth"
	"github.com/lazypower/cadence/internal/momentum"
	"github.com/lazypower/cadence/internal/store"
)

// Server is the cadence HTTP API server.
type Server struct {
	db      *store.DB
	svc     *momentum.Service
	auth    *auth.Manager
	log     *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server.
func New(db *store.DB, svc *momentum.Service, authMgr *auth.Manager, log *zap.Logger, version string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		db:      db,
		svc:     svc,
		auth:    authMgr,
		log:     log,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(countRequests)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/habits", s.handleCreateHabit)
			r.Get("/habits", s.handleListHabits)
			r.Get("/habits/{habitID}", s.handleGetHabit)
			r.Post("/habits/{habitID}/archive", s.handleArchiveHabit)

			r.Post("/habits/{habitID}/records", s.handleUpsertRecord)
			r.Get("/habits/{habitID}/records", s.handleListRecords)

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/dashboard/history", s.handleHistory)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serviceError maps engine errors onto HTTP responses. Missing habits and
// ownership failures get the same 404 so the API never leaks whether a habit
// exists under another account.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case momentum.IsValidation(err):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, momentum.ErrNotFound), errors.Is(err, momentum.ErrAccessDenied):
		jsonError(w, http.StatusNotFound, "habit not found")
	case errors.Is(err, momentum.ErrArchived):
		jsonError(w, http.StatusConflict, "habit is archived")
	default:
		s.log.Error("request failed", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
