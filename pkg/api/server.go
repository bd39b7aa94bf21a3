// Package api exposes the lab report service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/manthysbr/labforge/internal/core/domain"
	"github.com/manthysbr/labforge/internal/core/services"
)

type Server struct {
	logger *slog.Logger
	users  *services.UserService
	jobs   *services.JobService
	orch   *services.Orchestrator
	bus    *services.EventBus
	jwt    *JWTManager
}

func NewServer(
	logger *slog.Logger,
	users *services.UserService,
	jobs *services.JobService,
	orch *services.Orchestrator,
	bus *services.EventBus,
	jwtManager *JWTManager,
) *Server {
	return &Server{
		logger: logger,
		users:  users,
		jobs:   jobs,
		orch:   orch,
		bus:    bus,
		jwt:    jwtManager,
	}
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /v1/auth/profile", s.requireAuth(s.handleMe))
	mux.HandleFunc("PUT /v1/auth/profile", s.requireAuth(s.handleUpdateProfile))
	mux.HandleFunc("GET /v1/auth/apikey", s.requireAuth(s.handleGetAPIKey))
	mux.HandleFunc("PUT /v1/auth/apikey", s.requireAuth(s.handleSetAPIKey))

	// Lab jobs
	mux.HandleFunc("POST /v1/lab-jobs", s.requireAuth(s.handleCreateJob))
	mux.HandleFunc("GET /v1/lab-jobs", s.requireAuth(s.handleListJobs))
	mux.HandleFunc("GET /v1/lab-jobs/{id}", s.requireAuth(s.handleGetJob))
	mux.HandleFunc("POST /v1/lab-jobs/{id}/run", s.requireAuth(s.handleProcessJob))
	mux.HandleFunc("POST /v1/lab-jobs/{id}/experiments/{index}/process", s.requireAuth(s.handleProcessExperiment))
	mux.HandleFunc("POST /v1/lab-jobs/{id}/experiments/{index}/reset", s.requireAuth(s.handleResetExperiment))
	mux.HandleFunc("GET /v1/lab-jobs/{id}/export", s.requireAuth(s.handleExportJob))
	mux.HandleFunc("GET /v1/lab-jobs/{id}/events", s.requireAuth(s.handleJobSSE))

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var pe *domain.ProviderError
	var se *domain.SchemaValidationError

	switch {
	case errors.As(err, &ve):
		s.writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrAPIKeyMissing):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrExperimentNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrProfileIncomplete),
		errors.Is(err, domain.ErrJobNotExportable):
		s.writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.As(err, &pe), errors.As(err, &se):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("internal error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
