// File path: internal/api/session_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/session"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("api: create session decode failed", "error", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	sess, err := s.registry.Create(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("api: session created", "session", sess.ID, "name", sess.Name)
	writeJSON(w, http.StatusCreated, sessionPayload(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()
	payload := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		payload = append(payload, sessionPayload(sess))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": payload})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: session deleted", "session", id)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := s.registry.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	records, err := s.store.HistoryForSession(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:                rec.ID,
			Question:          rec.Question,
			SQL:               rec.SQLQuery.String,
			Status:            rec.Status,
			Error:             rec.ErrorMessage.String,
			VisualizationType: rec.VisualizationType,
			ExecutionTimeMS:   rec.ExecutionTimeMS,
			CreatedAt:         rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": items})
}
