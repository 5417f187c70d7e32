package models

// RoomKind distinguishes the two broadcast scopes.
type RoomKind string

const (
	RoomGlobal   RoomKind = "global"
	RoomPersonal RoomKind = "personal"
)

// GlobalRoomID is the id of the singleton global room.
const GlobalRoomID = "global"

// SenderSnapshot is the inlined sender identity carried on messages authored
// by guests, whose ids are never foreign-key joinable.
type SenderSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReplySnapshot is a point-in-time copy of the replied-to message's text and
// sender. It is stored denormalized so a reply survives deletion (or
// non-persistence) of the original.
type ReplySnapshot struct {
	OriginalID     string `json:"original_id,omitempty"`
	OriginalText   string `json:"original_text"`
	OriginalSender string `json:"original_sender"`
}

// Message is a chat message. Exactly one of SenderID / SenderSnapshot is
// meaningful: persisted accounts reference a user row, guests carry an inlined
// snapshot. ReplyToID is set only when the replied-to message is durable;
// ReplySnapshot is populated whenever a reply was intended.
type Message struct {
	ID             string          `json:"id"` // ULID
	RoomKind       RoomKind        `json:"room_kind"`
	RoomID         string          `json:"room_id"`
	SenderID       string          `json:"sender_id,omitempty"` // user UUID
	Sender         *SenderSnapshot `json:"sender,omitempty"`
	Text           string          `json:"text"`
	MediaURL       string          `json:"media_url,omitempty"`
	MediaKind      string          `json:"media_kind,omitempty"` // image, video, file
	ReplyToID      string          `json:"reply_to_id,omitempty"`
	ReplySnapshot  *ReplySnapshot  `json:"reply_snapshot,omitempty"`
	CreatedAt      int64           `json:"created_at"` // Unix ms
}

// Durable reports whether the message was persisted with a referenceable id.
// Guest-authored messages are broadcast-only and never durable.
func (m *Message) Durable() bool {
	return m.SenderID != ""
}
