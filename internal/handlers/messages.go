package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nirmalyamohanty/redfitchat/internal/api/middleware"
	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// SendMessageRequest is the request/response send payload. It mirrors the
// realtime send frames: both paths feed the same submit operation.
type SendMessageRequest struct {
	Text      string        `json:"text"`
	MediaURL  string        `json:"media_url,omitempty"`
	MediaKind string        `json:"media_kind,omitempty"`
	ReplyTo   *chat.ReplyTo `json:"reply_to,omitempty"`
}

// HistoryResponse carries one page of history in chronological order.
type HistoryResponse struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// GetGlobalHistory handles fetching a page of global room history.
func (h *Handler) GetGlobalHistory(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.history(w, r, principal, models.RoomGlobal, models.GlobalRoomID)
}

// GetPersonalHistory handles fetching a page of a personal room's history.
// The caller must be a participant.
func (h *Handler) GetPersonalHistory(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.history(w, r, principal, models.RoomPersonal, chi.URLParam(r, "chatID"))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, principal *models.Principal, kind models.RoomKind, roomID string) {
	limit, before := parsePage(r)

	// Fetch one extra row for the has_more flag
	fetch := limit
	if fetch <= 0 {
		fetch = 50
	}
	if fetch > 100 {
		fetch = 100
	}
	messages, err := h.svc.History(r.Context(), principal, kind, roomID, fetch+1, before)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	hasMore := len(messages) > fetch
	if hasMore {
		messages = messages[:fetch]
	}

	// Storage order is newest first; respond chronologically for display
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, HistoryResponse{Messages: messages, HasMore: hasMore})
}

// PostGlobalMessage handles the request/response send path for the global
// room. Delivery converges on the same submit operation as the realtime
// path, so live sockets in the room still receive the broadcast.
func (h *Handler) PostGlobalMessage(w http.ResponseWriter, r *http.Request) {
	h.postMessage(w, r, models.RoomGlobal, "")
}

// PostPersonalMessage handles the request/response send path for a personal
// room.
func (h *Handler) PostPersonalMessage(w http.ResponseWriter, r *http.Request) {
	h.postMessage(w, r, models.RoomPersonal, chi.URLParam(r, "chatID"))
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request, kind models.RoomKind, roomID string) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.svc.Submit(r.Context(), principal, chat.SubmitRequest{
		RoomKind:  kind,
		RoomID:    roomID,
		Text:      req.Text,
		MediaURL:  req.MediaURL,
		MediaKind: req.MediaKind,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}
