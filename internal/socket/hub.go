package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/metrics"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// OnlineUser is one entry of the presence snapshot.
type OnlineUser struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"last_seen"`
}

type presenceEntry struct {
	name     string
	lastSeen time.Time
	conns    int
}

// Hub is the process-wide connection registry and room router. Presence and
// room membership live only here, in memory, rebuilt from zero on restart.
type Hub struct {
	svc      *chat.Service
	verifier *auth.Verifier
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session       // connection id -> session
	presence map[string]*presenceEntry // principal id -> presence

	roomMu sync.RWMutex
	rooms  map[string]map[string]*session // room key -> connection id -> session
}

// NewHub creates the hub. Wire it into the chat service with
// svc.SetBroadcaster(hub) before serving connections.
func NewHub(svc *chat.Service, verifier *auth.Verifier, logger zerolog.Logger) *Hub {
	return &Hub{
		svc:      svc,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from anywhere; auth happens via the
			// verified credential, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
		presence: make(map[string]*presenceEntry),
		rooms:    make(map[string]map[string]*session),
	}
}

// ServeWS upgrades the connection, verifies the handshake credential and
// attaches the session. Any verification failure refuses the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	principal, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := newSession(uuid.NewString(), principal, h, conn)
	h.register(s)

	go s.writePump()
	s.readPump()
}

// bearerToken extracts the credential from the upgrade request. Header is
// preferred; the query fallback exists for browser WebSocket clients that
// cannot set headers. Both go through the same verification.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	entry, ok := h.presence[s.principal.ID]
	if !ok {
		entry = &presenceEntry{name: s.principal.Name}
		h.presence[s.principal.ID] = entry
	}
	entry.conns++
	entry.lastSeen = time.Now()
	first := entry.conns == 1
	h.mu.Unlock()

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()

	if first {
		h.broadcastAll(s, outbound{
			Event: EventPresenceOnline,
			Data:  PresencePayload{ID: s.principal.ID, Name: s.principal.Name},
		})
	}

	h.logger.Info().
		Str("conn", s.id).
		Str("principal", s.principal.ID).
		Bool("guest", s.principal.Guest).
		Msg("connection established")
}

// drop unregisters a session. Safe to call more than once; only the first
// call tears down.
func (h *Hub) drop(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	last := false
	if entry, ok := h.presence[s.principal.ID]; ok {
		entry.conns--
		if entry.conns <= 0 {
			delete(h.presence, s.principal.ID)
			last = true
		}
	}
	h.mu.Unlock()

	h.roomMu.Lock()
	for key, members := range h.rooms {
		if _, ok := members[s.id]; ok {
			delete(members, s.id)
			if len(members) == 0 {
				delete(h.rooms, key)
			}
		}
	}
	h.roomMu.Unlock()

	close(s.done)
	s.conn.Close()
	metrics.ConnectionsActive.Dec()

	if last {
		h.broadcastAll(nil, outbound{
			Event: EventPresenceOffline,
			Data:  PresencePayload{ID: s.principal.ID},
		})
	}

	h.logger.Info().Str("conn", s.id).Str("principal", s.principal.ID).Msg("connection closed")
}

// dispatch routes one inbound frame. Failures ack with a distinguishable
// error and never tear down the connection or affect other sessions.
func (h *Hub) dispatch(s *session, env *Envelope) {
	switch env.Event {
	case EventJoinGlobal:
		h.join(s, roomKey(models.RoomGlobal, models.GlobalRoomID))
		if env.Ack != 0 {
			s.enqueue(outbound{Event: EventAck, Ack: env.Ack, Data: AckPayload{OK: true}})
		}

	case EventJoinPersonal:
		var p JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			s.enqueue(ackError(env.Ack, "room_id required"))
			return
		}
		ctx, cancel := handlerContext()
		defer cancel()
		ok, err := h.svc.IsParticipant(ctx, s.principal, p.RoomID)
		if err != nil {
			s.enqueue(ackError(env.Ack, "room lookup failed"))
			return
		}
		if !ok {
			s.enqueue(ackError(env.Ack, "not a participant of this room"))
			return
		}
		h.join(s, roomKey(models.RoomPersonal, p.RoomID))
		if env.Ack != 0 {
			s.enqueue(outbound{Event: EventAck, Ack: env.Ack, Data: AckPayload{OK: true}})
		}

	case EventTypingGlobal:
		h.broadcastRoomExcept(roomKey(models.RoomGlobal, models.GlobalRoomID), s, outbound{
			Event: EventGlobalTyping,
			Data:  TypingPayload{ID: s.principal.ID, Name: s.principal.Name},
		})

	case EventTypingPersonal:
		var p JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		h.broadcastRoomExcept(roomKey(models.RoomPersonal, p.RoomID), s, outbound{
			Event: EventPersonalTyping,
			Data:  TypingPayload{ID: s.principal.ID, RoomID: p.RoomID},
		})

	case EventSendGlobal, EventSendPersonal:
		h.handleSend(s, env)

	default:
		s.enqueue(ackError(env.Ack, "unknown event"))
	}
}

// handleSend feeds a send intent into the shared chat service and acks with
// the persisted message or a mapped error. The broadcast itself is triggered
// by the service after the durable write, not here.
func (h *Hub) handleSend(s *session, env *Envelope) {
	var p SendPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		s.enqueue(ackError(env.Ack, "malformed payload"))
		return
	}

	req := chat.SubmitRequest{
		RoomKind:  models.RoomGlobal,
		Text:      p.Text,
		MediaURL:  p.MediaURL,
		MediaKind: p.MediaKind,
		ReplyTo:   p.ReplyTo,
	}
	if env.Event == EventSendPersonal {
		req.RoomKind = models.RoomPersonal
		req.RoomID = p.RoomID
	}

	ctx, cancel := handlerContext()
	defer cancel()

	msg, err := h.svc.Submit(ctx, s.principal, req)
	if err != nil {
		s.enqueue(ackError(env.Ack, errorMessage(err)))
		return
	}
	s.enqueue(outbound{Event: EventAck, Ack: env.Ack, Data: AckPayload{OK: true, Message: msg}})
}

// join adds the session to a room. Idempotent.
func (h *Hub) join(s *session, key string) {
	h.roomMu.Lock()
	defer h.roomMu.Unlock()

	members, ok := h.rooms[key]
	if !ok {
		members = make(map[string]*session)
		h.rooms[key] = members
	}
	members[s.id] = s
}

// Broadcast implements chat.Broadcaster: fans the event out to every
// connection currently joined to the room, the sender's own included.
// Participants with no live connection recover via history pagination.
func (h *Hub) Broadcast(kind models.RoomKind, roomID, event string, payload interface{}) {
	h.broadcastRoomExcept(roomKey(kind, roomID), nil, outbound{Event: event, Data: payload})
	metrics.BroadcastsSent.WithLabelValues(string(kind)).Inc()
}

// broadcastRoomExcept fans a frame out to a room, skipping except if set.
// The membership snapshot is taken under the read lock; enqueueing happens
// outside it so a slow connection never blocks membership changes.
func (h *Hub) broadcastRoomExcept(key string, except *session, frame outbound) {
	h.roomMu.RLock()
	targets := make([]*session, 0, len(h.rooms[key]))
	for _, member := range h.rooms[key] {
		if except != nil && member.id == except.id {
			continue
		}
		targets = append(targets, member)
	}
	h.roomMu.RUnlock()

	for _, member := range targets {
		member.enqueue(frame)
	}
}

// broadcastAll sends a frame to every connection except the originator.
func (h *Hub) broadcastAll(except *session, frame outbound) {
	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions))
	for _, member := range h.sessions {
		if except != nil && member.id == except.id {
			continue
		}
		targets = append(targets, member)
	}
	h.mu.RUnlock()

	for _, member := range targets {
		member.enqueue(frame)
	}
}

// Snapshot lists currently online principals for the presence endpoint.
func (h *Hub) Snapshot() []OnlineUser {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]OnlineUser, 0, len(h.presence))
	for id, entry := range h.presence {
		out = append(out, OnlineUser{ID: id, Name: entry.name, LastSeen: entry.lastSeen})
	}
	return out
}

func roomKey(kind models.RoomKind, roomID string) string {
	return string(kind) + ":" + roomID
}

// handlerContext bounds the work done for one inbound frame. Connection
// lifetime and frame handling are deliberately decoupled: a send already
// accepted should finish persisting even if the socket drops mid-flight.
func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func ackError(ack int64, message string) outbound {
	return outbound{Event: EventAck, Ack: ack, Data: AckPayload{OK: false, Error: message}}
}

// errorMessage maps service sentinels to client-facing error strings that
// stay distinguishable from network loss.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrRateLimited):
		return "rate limited, slow down"
	case errors.Is(err, chat.ErrNotParticipant):
		return "not a participant of this room"
	case errors.Is(err, chat.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, chat.ErrBlocked):
		return "user is blocked"
	case errors.Is(err, chat.ErrEmptyMessage):
		return "message has no content"
	case errors.Is(err, chat.ErrTextTooLong):
		return "text too long"
	default:
		return "failed to send message"
	}
}
