package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/nirmalyamohanty/redfitchat/internal/metrics"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
	"github.com/nirmalyamohanty/redfitchat/internal/moderation"
	"github.com/nirmalyamohanty/redfitchat/internal/ratelimit"
	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

const (
	maxTextLen     = 4096
	defaultLimit   = 50
	maxLimit       = 101 // one above the client page cap, leaves room for the has_more probe
	guestRingSize  = 128
	eventGlobalMsg = "global:message"
	eventPersonal  = "personal:message"
)

// Broadcaster fans an event out to the live connections of a room. Implemented
// by socket.Hub; the in-memory registry is replaceable behind this interface.
type Broadcaster interface {
	Broadcast(kind models.RoomKind, roomID, event string, payload interface{})
}

// SubmitRequest is a send intent. Both the realtime and the request/response
// paths construct one of these and converge on Service.Submit.
type SubmitRequest struct {
	RoomKind  models.RoomKind
	RoomID    string // chat id for personal rooms, ignored for global
	Text      string
	MediaURL  string
	MediaKind string
	ReplyTo   *ReplyTo
}

// ReplyTo is the client-supplied reply context: the id of the replied-to
// message plus the point-in-time text/sender used for the snapshot.
type ReplyTo struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// ChatView is a chat with the other participant and last message attached,
// for room-list rendering.
type ChatView struct {
	Chat        models.Chat     `json:"chat"`
	OtherUser   *models.User    `json:"other_user,omitempty"`
	LastMessage *models.Message `json:"last_message,omitempty"`
}

// Service owns message submission, history and personal-room resolution. One
// Submit implementation serves both transports so the persisted/broadcast
// effect cannot diverge.
type Service struct {
	store       store.DataStore
	limiter     ratelimit.Limiter
	filter      moderation.Filter
	broadcaster Broadcaster
	guestRing   *Ring
	rooms       *roomLocks
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService creates the chat service. filter may be nil (moderation
// collaborator absent); broadcaster must be set before the first Submit.
func NewService(st store.DataStore, limiter ratelimit.Limiter, filter moderation.Filter, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		limiter:   limiter,
		filter:    filter,
		guestRing: NewRing(guestRingSize),
		rooms:     newRoomLocks(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetBroadcaster wires the live-connection fan-out. Split from NewService
// because the hub needs the service for socket sends and vice versa.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Submit validates, persists and broadcasts one message. The broadcast is
// issued strictly after the durable write succeeds, so a concurrent history
// fetch can never miss a message it saw broadcast.
func (s *Service) Submit(ctx context.Context, sender *models.Principal, req SubmitRequest) (*models.Message, error) {
	allowed, err := s.limiter.Allow(ctx, sender.ID)
	if err != nil {
		// Limiter backend failure: fail open, a throttling outage should
		// not block communication.
		s.logger.Warn().Err(err).Str("sender", sender.ID).Msg("rate limiter unavailable")
	} else if !allowed {
		metrics.RateLimitHits.WithLabelValues(string(req.RoomKind)).Inc()
		return nil, ErrRateLimited
	}

	if req.Text == "" && req.MediaURL == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Text) > maxTextLen {
		return nil, ErrTextTooLong
	}

	text := s.sanitize(req.Text)

	var chatRoom *models.Chat
	if req.RoomKind == models.RoomPersonal {
		chatRoom, err = s.authorizePersonal(ctx, sender, req.RoomID)
		if err != nil {
			return nil, err
		}
	} else {
		req.RoomID = models.GlobalRoomID
	}

	replyToID, replySnapshot := s.resolveReply(ctx, req.ReplyTo, sender.Guest)

	msg := &models.Message{
		ID:            ulid.Make().String(),
		RoomKind:      req.RoomKind,
		RoomID:        req.RoomID,
		Text:          text,
		MediaURL:      req.MediaURL,
		MediaKind:     req.MediaKind,
		ReplyToID:     replyToID,
		ReplySnapshot: replySnapshot,
	}

	room := s.rooms.get(roomKey(req.RoomKind, req.RoomID))
	room.Lock()
	msg.CreatedAt = room.stamp(s.now().UnixMilli())

	if sender.Guest {
		// No row is written for guests: the message carries an inlined
		// sender snapshot and lives only in the broadcast plus the
		// global room's overlay ring.
		msg.Sender = sender.Snapshot()
		s.guestRing.Push(msg)
		room.Unlock()
	} else {
		msg.SenderID = sender.ID
		msg.Sender = sender.Snapshot()
		if err := s.store.InsertMessage(ctx, msg); err != nil {
			room.Unlock()
			return nil, err
		}
		if chatRoom != nil {
			if err := s.store.SetChatLastMessage(ctx, chatRoom.ID, msg.ID, msg.CreatedAt); err != nil {
				s.logger.Warn().Err(err).Str("chat", chatRoom.ID.String()).Msg("last-message pointer update failed")
			}
		}
		room.Unlock()
	}

	senderKind := "persisted"
	if sender.Guest {
		senderKind = "guest"
	}
	metrics.MessagesSubmitted.WithLabelValues(string(req.RoomKind), senderKind).Inc()

	event := eventGlobalMsg
	if req.RoomKind == models.RoomPersonal {
		event = eventPersonal
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(req.RoomKind, req.RoomID, event, msg)
	}

	return msg, nil
}

// History returns up to limit messages strictly older than before, newest
// first; the transport re-reverses for display. For the global room the
// guest overlay ring is merged onto the durable page.
func (s *Service) History(ctx context.Context, caller *models.Principal, kind models.RoomKind, roomID string, limit int, before int64) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if kind == models.RoomPersonal {
		if _, err := s.authorizePersonal(ctx, caller, roomID); err != nil {
			return nil, err
		}
	} else {
		roomID = models.GlobalRoomID
	}

	messages, err := s.store.ListMessages(ctx, kind, roomID, limit, before)
	if err != nil {
		return nil, err
	}

	if kind == models.RoomGlobal {
		messages = mergeNewestFirst(messages, s.guestRing.Page(limit, before), limit)
	}

	return messages, nil
}

// ResolveOrCreateChat returns the personal room for (requester, target),
// creating it on first contact. The unordered pair maps to exactly one room.
func (s *Service) ResolveOrCreateChat(ctx context.Context, requester *models.Principal, targetID uuid.UUID) (*ChatView, error) {
	if requester.Guest {
		return nil, ErrGuestForbidden
	}
	requesterID, err := uuid.Parse(requester.ID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if requesterID == targetID {
		return nil, ErrSelfChat
	}

	target, err := s.store.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	if err := s.checkBlocks(ctx, requesterID, targetID); err != nil {
		return nil, err
	}

	chatRoom, err := s.store.CreateChat(ctx, requesterID, targetID)
	if err != nil {
		return nil, err
	}

	return &ChatView{Chat: *chatRoom, OtherUser: target}, nil
}

// ListChats returns the caller's personal rooms ordered by recency, with the
// other participant and last message attached.
func (s *Service) ListChats(ctx context.Context, caller *models.Principal) ([]ChatView, error) {
	if caller.Guest {
		return nil, ErrGuestForbidden
	}
	callerID, err := uuid.Parse(caller.ID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	chats, err := s.store.ListChatsForUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	views := make([]ChatView, 0, len(chats))
	for _, c := range chats {
		view := ChatView{Chat: c}
		if other, err := s.store.GetUserByID(ctx, c.Other(callerID)); err == nil {
			view.OtherUser = other
		}
		if c.LastMessageID != "" {
			if last, err := s.store.GetMessage(ctx, c.LastMessageID); err == nil {
				view.LastMessage = last
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// IsParticipant reports whether the principal belongs to the chat. Used by
// the hub to gate personal-room joins.
func (s *Service) IsParticipant(ctx context.Context, p *models.Principal, chatID string) (bool, error) {
	_, err := s.authorizePersonal(ctx, p, chatID)
	if err == nil {
		return true, nil
	}
	if err == ErrNotParticipant || err == ErrRoomNotFound || err == ErrBlocked {
		return false, nil
	}
	return false, err
}

// MessageCount returns the number of durable messages authored by a user.
// Guest-authored messages never contribute: the aggregation joins on the
// foreign-key sender reference that guest messages do not have.
func (s *Service) MessageCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.CountMessagesBySender(ctx, userID)
}

// sanitize runs the moderation collaborator over the text. Fails open: a
// missing or panicking filter passes the original text through rather than
// blocking communication.
func (s *Service) sanitize(text string) (out string) {
	if s.filter == nil {
		return text
	}
	out = text
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Interface("panic", r).Msg("moderation filter failed, passing text through")
			out = text
		}
	}()
	out = s.filter.Sanitize(text)
	return out
}

// authorizePersonal loads the chat and verifies membership. Re-checked here
// even for socket sends: the request/response path bypasses socket membership
// entirely, and socket room joins are advisory for delivery correctness.
func (s *Service) authorizePersonal(ctx context.Context, p *models.Principal, chatID string) (*models.Chat, error) {
	if p.Guest {
		return nil, ErrNotParticipant
	}
	id, err := uuid.Parse(chatID)
	if err != nil {
		return nil, ErrRoomNotFound
	}
	chatRoom, err := s.store.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	if chatRoom == nil {
		return nil, ErrRoomNotFound
	}
	senderID, err := uuid.Parse(p.ID)
	if err != nil || !chatRoom.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	if err := s.checkBlocks(ctx, senderID, chatRoom.Other(senderID)); err != nil {
		return nil, err
	}
	return chatRoom, nil
}

// checkBlocks rejects when either side has blocked the other.
func (s *Service) checkBlocks(ctx context.Context, a, b uuid.UUID) error {
	if blocked, err := s.store.IsBlocked(ctx, a, b); err != nil {
		return err
	} else if blocked {
		return ErrBlocked
	}
	if blocked, err := s.store.IsBlocked(ctx, b, a); err != nil {
		return err
	} else if blocked {
		return ErrBlocked
	}
	return nil
}

// resolveReply applies the reply rule: keep the id reference only when it
// resolves to a durable message; keep the snapshot whenever a reply was
// intended. An unresolvable reference is dropped, not fatal.
func (s *Service) resolveReply(ctx context.Context, reply *ReplyTo, guestSender bool) (string, *models.ReplySnapshot) {
	if reply == nil {
		return "", nil
	}

	snapshot := &models.ReplySnapshot{
		OriginalID:     reply.ID,
		OriginalText:   reply.Text,
		OriginalSender: reply.Sender,
	}

	// Guest-authored messages do not persist, so their rows cannot hold a
	// reference either way.
	if guestSender || reply.ID == "" {
		return "", snapshot
	}

	original, err := s.store.GetMessage(ctx, reply.ID)
	if err != nil || original == nil || !original.Durable() {
		return "", snapshot
	}
	return original.ID, snapshot
}

func roomKey(kind models.RoomKind, roomID string) string {
	return string(kind) + ":" + roomID
}

// mergeNewestFirst merges two newest-first pages by createdAt, capped at
// limit, deduplicated by id.
func mergeNewestFirst(a, b []models.Message, limit int) []models.Message {
	if len(b) == 0 {
		return a
	}
	out := make([]models.Message, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	i, j := 0, 0
	for (i < len(a) || j < len(b)) && len(out) < limit {
		var next models.Message
		switch {
		case i >= len(a):
			next = b[j]
			j++
		case j >= len(b):
			next = a[i]
			i++
		case b[j].CreatedAt > a[i].CreatedAt:
			next = b[j]
			j++
		default:
			next = a[i]
			i++
		}
		if seen[next.ID] {
			continue
		}
		seen[next.ID] = true
		out = append(out, next)
	}
	return out
}
