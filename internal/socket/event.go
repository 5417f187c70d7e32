package socket

import (
	"encoding/json"

	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// Client → server events.
const (
	EventJoinGlobal     = "join-global"
	EventJoinPersonal   = "join-personal"
	EventTypingGlobal   = "typing-global"
	EventTypingPersonal = "typing-personal"
	EventSendGlobal     = "send-global"
	EventSendPersonal   = "send-personal"
)

// Server → client events.
const (
	EventAck             = "ack"
	EventPresenceOnline  = "presence:online"
	EventPresenceOffline = "presence:offline"
	EventGlobalMessage   = "global:message"
	EventGlobalTyping    = "global:typing"
	EventPersonalMessage = "personal:message"
	EventPersonalTyping  = "personal:typing"
)

// Envelope is the wire frame in both directions. Ack carries a client-chosen
// correlation id; a server reply with the same Ack acknowledges that frame.
type Envelope struct {
	Event string          `json:"event"`
	Ack   int64           `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is a server frame before encoding.
type outbound struct {
	Event string      `json:"event"`
	Ack   int64       `json:"ack,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// JoinPayload carries the room id for join/typing events.
type JoinPayload struct {
	RoomID string `json:"room_id"`
}

// SendPayload is the body of send-global and send-personal frames.
type SendPayload struct {
	RoomID    string        `json:"room_id,omitempty"`
	Text      string        `json:"text"`
	MediaURL  string        `json:"media_url,omitempty"`
	MediaKind string        `json:"media_kind,omitempty"`
	ReplyTo   *chat.ReplyTo `json:"reply_to,omitempty"`
}

// AckPayload acknowledges a send: the persisted message on success (so the
// sender renders without waiting for its own broadcast echo), a
// distinguishable error otherwise.
type AckPayload struct {
	OK      bool            `json:"ok"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PresencePayload announces a principal going online or offline.
type PresencePayload struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// TypingPayload announces typing activity.
type TypingPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	RoomID string `json:"room_id,omitempty"`
}
