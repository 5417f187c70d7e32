package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/socket"
	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	svc      *chat.Service
	store    store.DataStore
	hub      *socket.Hub
	verifier *auth.Verifier
}

// NewHandler creates a new Handler.
func NewHandler(svc *chat.Service, st store.DataStore, hub *socket.Hub, verifier *auth.Verifier) *Handler {
	return &Handler{svc: svc, store: st, hub: hub, verifier: verifier}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps chat service sentinels to HTTP statuses.
func (h *Handler) ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrRateLimited):
		h.Error(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
	case errors.Is(err, chat.ErrNotParticipant):
		h.Error(w, http.StatusForbidden, "not a participant of this room")
	case errors.Is(err, chat.ErrBlocked):
		h.Error(w, http.StatusForbidden, "user is blocked")
	case errors.Is(err, chat.ErrGuestForbidden):
		h.Error(w, http.StatusForbidden, "not available to guest sessions")
	case errors.Is(err, chat.ErrRoomNotFound):
		h.Error(w, http.StatusNotFound, "room not found")
	case errors.Is(err, chat.ErrUserNotFound):
		h.Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, chat.ErrSelfChat):
		h.Error(w, http.StatusBadRequest, "cannot chat with yourself")
	case errors.Is(err, chat.ErrEmptyMessage):
		h.Error(w, http.StatusBadRequest, "message has no content")
	case errors.Is(err, chat.ErrTextTooLong):
		h.Error(w, http.StatusUnprocessableEntity, "text too long")
	default:
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// parsePage reads limit/before pagination params. Limit defaults and caps are
// enforced again in the service; this just parses.
func parsePage(r *http.Request) (limit int, before int64) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("before"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			before = n
		}
	}
	return limit, before
}
