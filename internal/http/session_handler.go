package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/sirupsen/logrus"
)

type sessionStore interface {
	Save(ctx context.Context, sessionID, token string) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionHandler stores the backend-issued token of a session. Issuing tokens
// is the shop backend's job.
type SessionHandler struct {
	store   sessionStore
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewSessionHandler(store sessionStore, timeout time.Duration, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{
		store:   store,
		timeout: timeout,
		log:     log,
	}
}

type LoginRequestDTO struct {
	Token string `json:"token"`
}

// POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Token = strings.TrimPrefix(strings.TrimSpace(req.Token), "Bearer ")
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	if err := h.store.Save(ctx, getSessionID(r.Context()), req.Token); err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Error("failed to save session token")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Delete(ctx, getSessionID(r.Context())); err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Error("failed to delete session token")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to end session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
