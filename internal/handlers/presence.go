package handlers

import "net/http"

// PresenceResponse lists currently online principals.
type PresenceResponse struct {
	Online []OnlineEntry `json:"online"`
	Count  int           `json:"count"`
}

// OnlineEntry is one online principal.
type OnlineEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetPresence returns the in-memory online map. Presence is
// connection-lifetime-bound and resets on process restart.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	snapshot := h.hub.Snapshot()

	online := make([]OnlineEntry, len(snapshot))
	for i, u := range snapshot {
		online[i] = OnlineEntry{ID: u.ID, Name: u.Name}
	}

	h.JSON(w, http.StatusOK, PresenceResponse{Online: online, Count: len(online)})
}
