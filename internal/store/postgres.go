package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username TEXT UNIQUE NOT NULL,
		avatar TEXT DEFAULT '',
		bio TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS blocks (
		owner UUID NOT NULL REFERENCES users(id),
		target UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ DEFAULT NOW(),
		PRIMARY KEY (owner, target)
	);

	CREATE TABLE IF NOT EXISTS chats (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		participant_a UUID NOT NULL REFERENCES users(id),
		participant_b UUID NOT NULL REFERENCES users(id),
		last_message_id TEXT DEFAULT '',
		last_message_at BIGINT DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE (participant_a, participant_b)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_kind TEXT NOT NULL,
		room_id TEXT NOT NULL,
		sender_id UUID NOT NULL REFERENCES users(id),
		text TEXT DEFAULT '',
		media_url TEXT DEFAULT '',
		media_kind TEXT DEFAULT '',
		reply_to_id TEXT DEFAULT '',
		reply_snapshot TEXT DEFAULT '',
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		message_id TEXT NOT NULL,
		reporter_id UUID NOT NULL REFERENCES users(id),
		reason TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_kind, room_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_messages_reply ON messages(reply_to_id);
	CREATE INDEX IF NOT EXISTS idx_chats_last_message_at ON chats(last_message_at DESC);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, username, avatar string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, avatar)
		VALUES ($1, $2)
		RETURNING id, username, avatar, bio, created_at
	`, username, avatar).Scan(
		&user.ID,
		&user.Username,
		&user.Avatar,
		&user.Bio,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, avatar, bio, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Username,
		&user.Avatar,
		&user.Bio,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// BlockUser records that owner has blocked target.
func (s *PostgresStore) BlockUser(ctx context.Context, owner, target uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocks (owner, target) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, owner, target)
	return err
}

// UnblockUser removes a block.
func (s *PostgresStore) UnblockUser(ctx context.Context, owner, target uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM blocks WHERE owner = $1 AND target = $2
	`, owner, target)
	return err
}

// IsBlocked reports whether owner has blocked target.
func (s *PostgresStore) IsBlocked(ctx context.Context, owner, target uuid.UUID) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM blocks WHERE owner = $1 AND target = $2
	`, owner, target).Scan(&n)
	return n > 0, err
}

// GetChat retrieves a chat by ID.
func (s *PostgresStore) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return s.scanChatRow(s.pool.QueryRow(ctx, `
		SELECT id, participant_a, participant_b, last_message_id, last_message_at, created_at
		FROM chats WHERE id = $1
	`, id))
}

// FindChatByParticipants retrieves the chat for the unordered pair (a, b).
func (s *PostgresStore) FindChatByParticipants(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	pa, pb := models.NormalizePair(a, b)
	return s.scanChatRow(s.pool.QueryRow(ctx, `
		SELECT id, participant_a, participant_b, last_message_id, last_message_at, created_at
		FROM chats WHERE participant_a = $1 AND participant_b = $2
	`, pa, pb))
}

// CreateChat inserts a chat for the pair if absent and returns the row for
// the pair either way.
func (s *PostgresStore) CreateChat(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	pa, pb := models.NormalizePair(a, b)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO chats (participant_a, participant_b)
		VALUES ($1, $2)
		ON CONFLICT (participant_a, participant_b) DO NOTHING
	`, pa, pb)
	if err != nil {
		return nil, err
	}

	return s.FindChatByParticipants(ctx, pa, pb)
}

// ListChatsForUser retrieves a user's chats ordered by recency.
func (s *PostgresStore) ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, participant_a, participant_b, last_message_id, last_message_at, created_at
		FROM chats
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_at DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		chat := models.Chat{}
		err := rows.Scan(
			&chat.ID,
			&chat.ParticipantA,
			&chat.ParticipantB,
			&chat.LastMessageID,
			&chat.LastMessageAt,
			&chat.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// SetChatLastMessage updates the last-message pointer unless a newer message
// already holds it.
func (s *PostgresStore) SetChatLastMessage(ctx context.Context, chatID uuid.UUID, messageID string, at int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chats
		SET last_message_id = $1, last_message_at = $2
		WHERE id = $3 AND last_message_at <= $2
	`, messageID, at, chatID)
	return err
}

// InsertMessage persists a message row.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	snapshot := ""
	if msg.ReplySnapshot != nil {
		data, err := json.Marshal(msg.ReplySnapshot)
		if err != nil {
			return err
		}
		snapshot = string(data)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, room_kind, room_id, sender_id, text, media_url, media_kind, reply_to_id, reply_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, string(msg.RoomKind), msg.RoomID, msg.SenderID, msg.Text,
		msg.MediaURL, msg.MediaKind, msg.ReplyToID, snapshot, msg.CreatedAt)
	return err
}

// GetMessage retrieves a message by ID with sender info attached.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT m.id, m.room_kind, m.room_id, m.sender_id::text, m.text, m.media_url,
		       m.media_kind, m.reply_to_id, m.reply_snapshot, m.created_at,
		       u.username, u.avatar
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1
	`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListMessages retrieves up to limit messages from a room, newest first,
// strictly older than before when given.
func (s *PostgresStore) ListMessages(ctx context.Context, kind models.RoomKind, roomID string, limit int, before int64) ([]models.Message, error) {
	query := `
		SELECT m.id, m.room_kind, m.room_id, m.sender_id::text, m.text, m.media_url,
		       m.media_kind, m.reply_to_id, m.reply_snapshot, m.created_at,
		       u.username, u.avatar
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room_kind = $1 AND m.room_id = $2`
	args := []interface{}{string(kind), roomID}

	if before > 0 {
		query += ` AND m.created_at < $3 ORDER BY m.created_at DESC, m.id DESC LIMIT $4`
		args = append(args, before, limit)
	} else {
		query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// DeleteMessagesBefore permanently deletes messages older than cutoff (Unix
// ms) and returns the number of rows removed.
func (s *PostgresStore) DeleteMessagesBefore(ctx context.Context, cutoff int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountMessagesBySender counts persisted messages by sender.
func (s *PostgresStore) CountMessagesBySender(ctx context.Context, senderID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.sender_id = $1
	`, senderID).Scan(&count)
	return count, err
}

// InsertReport files a report against a message.
func (s *PostgresStore) InsertReport(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports (id, message_id, reporter_id, reason)
		VALUES ($1, $2, $3, $4)
	`, report.ID, report.MessageID, report.ReporterID, report.Reason)
	return err
}

// CountUsers counts registered accounts.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountChats counts personal rooms.
func (s *PostgresStore) CountChats(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n)
	return n, err
}

// CountMessages counts durable messages across all rooms.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// LastMessageAt returns the createdAt of the newest durable message, 0 when
// the table is empty.
func (s *PostgresStore) LastMessageAt(ctx context.Context) (int64, error) {
	var at int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(created_at), 0) FROM messages`).Scan(&at)
	return at, err
}

func (s *PostgresStore) scanChatRow(row pgx.Row) (*models.Chat, error) {
	chat := &models.Chat{}
	err := row.Scan(
		&chat.ID,
		&chat.ParticipantA,
		&chat.ParticipantB,
		&chat.LastMessageID,
		&chat.LastMessageAt,
		&chat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return chat, nil
}
