package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/meetingbot/internal/dialogue"
	"github.com/ent0n29/meetingbot/internal/session"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 500
)

type chatRequest struct {
	Message  string `json:"message"`
	Timezone string `json:"timezone,omitempty"`
}

type conversationResponse struct {
	session.Summary
	Context map[string]string `json:"context"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r, false)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", UserHeader+" header is required")
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := s.engine.ProcessMessage(r.Context(), userID, req.Message, req.Timezone)
	if err != nil {
		if errors.Is(err, dialogue.ErrUserIDRequired) {
			respondError(w, http.StatusUnauthorized, "missing_user", err.Error())
			return
		}
		s.logger.Error("chat processing failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "message could not be processed")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// conversationOwner authorizes access to /conversations/{userId}: callers may
// only act on their own conversation.
func (s *Server) conversationOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := callerID(r, false)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", UserHeader+" header is required")
		return "", false
	}
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return "", false
	}
	if userID != caller {
		respondError(w, http.StatusForbidden, "forbidden", "conversation belongs to another user")
		return "", false
	}
	return userID, true
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.conversationOwner(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Current(userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, conversationResponse{Summary: sess.Summary(), Context: sess.Context})
}

func (s *Server) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.conversationOwner(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.End(userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ObserveSessionEvent("ended", s.sessions.ActiveCount())
	s.logger.Info("conversation ended", "user_id", userID, "session_id", sess.ID, "messages", sess.MessageCount)
	respondJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) handleClearContext(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.conversationOwner(w, r)
	if !ok {
		return
	}
	if err := s.sessions.ClearContext(userID); err != nil {
		status := http.StatusNotFound
		if errors.Is(err, session.ErrSessionClosed) {
			status = http.StatusConflict
		}
		respondError(w, status, "session_not_found", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.conversationOwner(w, r)
	if !ok {
		return
	}
	if s.transcripts == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "transcript store not configured")
		return
	}
	limit := defaultMessageLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxMessageLimit)
	}
	records, err := s.transcripts.RecentMessages(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("transcript read failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "transcript_error", "messages could not be loaded")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"messages": records,
	})
}
