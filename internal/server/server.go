package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/agent"
	"github.com/spigell/talent-sourcer/internal/candidate"
)

// Server exposes the sourcing engine over HTTP. It is a thin collaborator:
// all behavior lives in the agent.
type Server struct {
	agent  *agent.Agent
	logger *zap.Logger
}

// New creates the HTTP surface around an agent.
func New(a *agent.Agent, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{agent: a, logger: logger}
}

// Router builds the chi routing tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/source-candidates", s.handleSourceCandidates)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) handleSourceCandidates(w http.ResponseWriter, r *http.Request) {
	var job candidate.JobSpec
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.agent.Run(r.Context(), &job)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrInvalidJob):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, agent.ErrBusy):
			s.writeError(w, http.StatusServiceUnavailable, "engine is unable to accept new work")
		default:
			s.logger.Error("job failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.agent.Health(r.Context()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
