// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/talkdata/internal/catalog"
	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/llm"
	"github.com/nicodishanthj/talkdata/internal/orchestrator"
	"github.com/nicodishanthj/talkdata/internal/prompt"
	"github.com/nicodishanthj/talkdata/internal/session"
)

type Server struct {
	router   chi.Router
	registry *session.Registry
	store    *catalog.Store
	orch     *orchestrator.Orchestrator
	provider llm.Provider
	builder  *prompt.Builder
}

func NewServer(registry *session.Registry, store *catalog.Store, orch *orchestrator.Orchestrator, provider llm.Provider, builder *prompt.Builder) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	srv := &Server{
		router:   chi.NewRouter(),
		registry: registry,
		store:    store,
		orch:     orch,
		provider: provider,
		builder:  builder,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/sessions", s.handleCreateSession)
	s.router.Get("/v1/sessions", s.handleListSessions)
	s.router.Get("/v1/sessions/{sessionID}", s.handleGetSession)
	s.router.Delete("/v1/sessions/{sessionID}", s.handleDeleteSession)
	s.router.Get("/v1/sessions/{sessionID}/history", s.handleHistory)
	s.router.Post("/v1/upload", s.handleUpload)
	s.router.Post("/v1/query", s.handleQuery)
	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
