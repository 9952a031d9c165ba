package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lunia-labs/whatsapp-assistant/internal/action"
	"github.com/lunia-labs/whatsapp-assistant/internal/middleware"
	"github.com/lunia-labs/whatsapp-assistant/internal/session"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

// AdminHandler exposes session and action inspection endpoints for
// operators.
type AdminHandler struct {
	sessions *session.MemoryStore
	matcher  *action.Matcher
	logger   *logger.Logger
}

// NewAdminHandler creates a new admin handler. The matcher may be nil
// when service actions are not configured.
func NewAdminHandler(sessions *session.MemoryStore, matcher *action.Matcher, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		matcher:  matcher,
		logger:   log,
	}
}

// GetSession handles GET /api/v1/sessions/:userID
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidatePhone(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /api/v1/sessions/:userID
func (h *AdminHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidatePhone(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.Delete(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetActions handles GET /api/v1/actions/:userID
func (h *AdminHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	if h.matcher == nil {
		writeError(w, http.StatusServiceUnavailable, "service actions not configured")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidatePhone(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	actions, err := h.matcher.UserActionHistory(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to load action history")
		writeError(w, http.StatusInternalServerError, "failed to load action history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"actions": actions,
	})
}

// GetStats handles GET /api/v1/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_sessions": h.sessions.Count(),
	}

	if h.matcher != nil {
		actionStats, err := h.matcher.Statistics(r.Context())
		if err != nil {
			h.logger.Error("failed to load action statistics")
		} else {
			stats["actions"] = actionStats
		}
	}

	writeJSON(w, http.StatusOK, stats)
}
