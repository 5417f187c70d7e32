package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a user-filed complaint about a durable message. Reports are
// write-only from the delivery subsystem's point of view; review tooling
// consumes them out of band.
type Report struct {
	ID         uuid.UUID `json:"id"`
	MessageID  string    `json:"message_id"`
	ReporterID uuid.UUID `json:"reporter_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
