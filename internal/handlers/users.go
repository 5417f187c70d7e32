package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nirmalyamohanty/redfitchat/internal/api/middleware"
)

// UserResponse is the public profile shape.
type UserResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar,omitempty"`
	Bio          string `json:"bio,omitempty"`
	MessageCount int64  `json:"message_count"`
	JoinedAt     string `json:"joined_at"`
}

// GetUser handles profile lookup. The message count aggregates durable
// messages only; guest-authored messages have no sender reference to join.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	count, err := h.svc.MessageCount(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, UserResponse{
		ID:           user.ID.String(),
		Username:     user.Username,
		Avatar:       user.Avatar,
		Bio:          user.Bio,
		MessageCount: count,
		JoinedAt:     user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// BlockUser records a one-directional block against the target user.
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlock(w, r, true)
}

// UnblockUser removes a block.
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlock(w, r, false)
}

func (h *Handler) setBlock(w http.ResponseWriter, r *http.Request, block bool) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if principal.Guest {
		h.Error(w, http.StatusForbidden, "not available to guest sessions")
		return
	}

	owner, err := uuid.Parse(principal.ID)
	if err != nil {
		h.Error(w, http.StatusUnauthorized, "invalid credential")
		return
	}
	target, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}
	if owner == target {
		h.Error(w, http.StatusBadRequest, "cannot block yourself")
		return
	}

	if block {
		err = h.store.BlockUser(r.Context(), owner, target)
	} else {
		err = h.store.UnblockUser(r.Context(), owner, target)
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"blocked": block})
}
