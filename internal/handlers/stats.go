package handlers

import (
	"net/http"
	"strconv"
	"time"
)

// StatsResponse carries aggregate platform counters for the landing page.
// Guest-authored messages are broadcast-only, so total_messages counts
// durable rows.
type StatsResponse struct {
	TotalUsers    int64  `json:"total_users"`
	TotalChats    int64  `json:"total_chats"`
	TotalMessages int64  `json:"total_messages"`
	OnlineNow     int    `json:"online_now"`
	LastActivity  string `json:"last_activity"`
}

// Stats returns platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := h.store.CountUsers(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	totalChats, err := h.store.CountChats(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count chats")
		return
	}

	totalMessages, err := h.store.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	lastAt, err := h.store.LastMessageAt(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get last activity")
		return
	}
	lastActivity := "no activity yet"
	if lastAt > 0 {
		lastActivity = formatTimeAgo(time.UnixMilli(lastAt))
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:    totalUsers,
		TotalChats:    totalChats,
		TotalMessages: totalMessages,
		OnlineNow:     len(h.hub.Snapshot()),
		LastActivity:  lastActivity,
	})
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return strconv.Itoa(mins) + " minutes ago"
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return strconv.Itoa(hours) + " hours ago"
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return strconv.Itoa(days) + " days ago"
	}
}
