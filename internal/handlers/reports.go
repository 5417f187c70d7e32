package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nirmalyamohanty/redfitchat/internal/api/middleware"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

const maxReasonLen = 500

// ReportRequest carries the optional free-text reason.
type ReportRequest struct {
	Reason string `json:"reason"`
}

// ReportMessage files a report against a durable message. Guest-authored
// messages never persist, so only durable messages are reportable; the
// report itself is consumed by review tooling, not by this service.
func (h *Handler) ReportMessage(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if principal.Guest {
		h.Error(w, http.StatusForbidden, "not available to guest sessions")
		return
	}
	reporterID, err := uuid.Parse(principal.ID)
	if err != nil {
		h.Error(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	var req ReportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if len(req.Reason) > maxReasonLen {
		req.Reason = req.Reason[:maxReasonLen]
	}

	messageID := chi.URLParam(r, "id")
	msg, err := h.store.GetMessage(r.Context(), messageID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if msg == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}

	if err := h.store.InsertReport(r.Context(), &models.Report{
		MessageID:  msg.ID,
		ReporterID: reporterID,
		Reason:     req.Reason,
	}); err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusCreated, map[string]string{"message": "report submitted"})
}
