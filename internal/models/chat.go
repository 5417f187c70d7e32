package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a personal room: exactly two participants, unique per unordered
// pair, participants immutable once created. ParticipantA/B are stored in
// lexicographic order so the pair has a single canonical representation.
type Chat struct {
	ID            uuid.UUID `json:"id"`
	ParticipantA  uuid.UUID `json:"participant_a"`
	ParticipantB  uuid.UUID `json:"participant_b"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	LastMessageAt int64     `json:"last_message_at,omitempty"` // Unix ms
	CreatedAt     time.Time `json:"created_at"`
}

// NormalizePair orders two participant ids canonically.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether id is one of the chat's two participants.
func (c *Chat) HasParticipant(id uuid.UUID) bool {
	return c.ParticipantA == id || c.ParticipantB == id
}

// Other returns the participant that is not id.
func (c *Chat) Other(id uuid.UUID) uuid.UUID {
	if c.ParticipantA == id {
		return c.ParticipantB
	}
	return c.ParticipantA
}
