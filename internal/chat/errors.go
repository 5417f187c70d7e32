package chat

import "errors"

// Failure taxonomy for the delivery core. Transport adapters map these to
// HTTP statuses and socket error acks; they must stay distinguishable from
// network loss so clients can decide whether to retry.
var (
	ErrRateLimited    = errors.New("chat: rate limited")
	ErrNotParticipant = errors.New("chat: not a participant of this room")
	ErrRoomNotFound   = errors.New("chat: room not found")
	ErrUserNotFound   = errors.New("chat: user not found")
	ErrSelfChat       = errors.New("chat: cannot chat with yourself")
	ErrBlocked        = errors.New("chat: user is blocked")
	ErrEmptyMessage   = errors.New("chat: message has no content")
	ErrTextTooLong    = errors.New("chat: text too long")
	ErrGuestForbidden = errors.New("chat: not available to guest sessions")
)
