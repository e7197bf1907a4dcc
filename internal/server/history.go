package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/tome/pkg/models"
)

type historyResponse struct {
	SessionID string           `json:"sessionId"`
	Messages  []models.Message `json:"messages"`
	ModelID   string           `json:"modelId,omitempty"`
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

// handleHistory returns the stored conversation for a session.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		s.jsonError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	session, err := s.config.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		s.logger.Error(r.Context(), "load session history", "error", err)
		s.jsonError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	resp := historyResponse{
		SessionID: sessionID,
		Messages:  session.Messages,
		ModelID:   session.ModelID,
	}
	if resp.Messages == nil {
		resp.Messages = []models.Message{}
	}
	if !session.CreatedAt.IsZero() {
		resp.CreatedAt = &session.CreatedAt
	}
	if !session.UpdatedAt.IsZero() {
		resp.UpdatedAt = &session.UpdatedAt
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
