package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// DataStore defines the interface for persistent storage of users, chats and
// messages. Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, avatar string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	BlockUser(ctx context.Context, owner, target uuid.UUID) error
	UnblockUser(ctx context.Context, owner, target uuid.UUID) error
	// IsBlocked reports whether owner has blocked target (one-directional).
	IsBlocked(ctx context.Context, owner, target uuid.UUID) (bool, error)

	// Chat (personal room) operations
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	FindChatByParticipants(ctx context.Context, a, b uuid.UUID) (*models.Chat, error)
	// CreateChat inserts a chat for the normalized pair if absent and returns
	// the row for the pair either way.
	CreateChat(ctx context.Context, a, b uuid.UUID) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	// SetChatLastMessage updates the last-message pointer only when at is not
	// older than the stored pointer (last-writer-by-createdAt).
	SetChatLastMessage(ctx context.Context, chatID uuid.UUID, messageID string, at int64) error

	// Message operations
	InsertMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	// ListMessages returns up to limit messages strictly older than before
	// (Unix ms; 0 means no bound), newest first.
	ListMessages(ctx context.Context, kind models.RoomKind, roomID string, limit int, before int64) ([]models.Message, error)
	DeleteMessagesBefore(ctx context.Context, cutoff int64) (int64, error)
	// CountMessagesBySender joins on the foreign-key sender reference, so
	// guest-authored messages never contribute.
	CountMessagesBySender(ctx context.Context, senderID uuid.UUID) (int64, error)

	// Report operations
	InsertReport(ctx context.Context, report *models.Report) error

	// Aggregates for the stats endpoint
	CountUsers(ctx context.Context) (int64, error)
	CountChats(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	// LastMessageAt returns the createdAt of the newest durable message
	// (Unix ms), 0 when there are none.
	LastMessageAt(ctx context.Context) (int64, error)
}
