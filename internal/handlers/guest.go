package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode"
)

const guestSessionTTL = 12 * time.Hour

// GuestSessionRequest asks for an ephemeral guest credential.
type GuestSessionRequest struct {
	Name string `json:"name"`
}

// GuestSessionResponse carries the minted guest credential. The id inside is
// disposable and never backed by a user row.
type GuestSessionResponse struct {
	Token     string `json:"token"`
	Name      string `json:"name"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// CreateGuestSession mints a short-lived guest credential. Persisted-account
// credentials come from the external identity provider, not from here.
func (h *Handler) CreateGuestSession(w http.ResponseWriter, r *http.Request) {
	var req GuestSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		name = "anon_guest"
	}

	token, err := h.verifier.IssueGuest(name, guestSessionTTL)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue credential")
		return
	}

	h.JSON(w, http.StatusCreated, GuestSessionResponse{
		Token:     token,
		Name:      name,
		ExpiresIn: int64(guestSessionTTL.Seconds()),
	})
}

// sanitizeName trims and limits name to 50 characters, removing control
// characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Truncate on runes so a multi-byte character is never split
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}

	return name
}
