package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nirmalyamohanty/redfitchat/internal/api/middleware"
)

// ListChats returns the caller's personal rooms ordered by recency.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	chats, err := h.svc.ListChats(r.Context(), principal)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, chats)
}

// StartChat resolves or creates the personal room with the target user.
// Calling it twice, or from either side, returns the same room.
func (h *Handler) StartChat(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	view, err := h.svc.ResolveOrCreateChat(r.Context(), principal, targetID)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, view)
}
