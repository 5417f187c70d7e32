package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/redfitchat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/redfitchat.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		avatar TEXT DEFAULT '',
		bio TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS blocks (
		owner TEXT NOT NULL REFERENCES users(id),
		target TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, target)
	);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		participant_a TEXT NOT NULL REFERENCES users(id),
		participant_b TEXT NOT NULL REFERENCES users(id),
		last_message_id TEXT DEFAULT '',
		last_message_at INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (participant_a, participant_b)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_kind TEXT NOT NULL,
		room_id TEXT NOT NULL,
		sender_id TEXT NOT NULL REFERENCES users(id),
		text TEXT DEFAULT '',
		media_url TEXT DEFAULT '',
		media_kind TEXT DEFAULT '',
		reply_to_id TEXT DEFAULT '',
		reply_snapshot TEXT DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		reporter_id TEXT NOT NULL REFERENCES users(id),
		reason TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_kind, room_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_messages_reply ON messages(reply_to_id);
	CREATE INDEX IF NOT EXISTS idx_chats_last_message_at ON chats(last_message_at DESC);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, avatar string) (*models.User, error) {
	id := uuid.New()
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, avatar, created_at)
		VALUES (?, ?, ?, ?)
	`, id.String(), username, avatar, now)
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, avatar, bio, created_at
		FROM users WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&user.Username,
		&user.Avatar,
		&user.Bio,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID = uuid.MustParse(idStr)
	return user, nil
}

// BlockUser records that owner has blocked target.
func (s *SQLiteStore) BlockUser(ctx context.Context, owner, target uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blocks (owner, target) VALUES (?, ?)
	`, owner.String(), target.String())
	return err
}

// UnblockUser removes a block.
func (s *SQLiteStore) UnblockUser(ctx context.Context, owner, target uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM blocks WHERE owner = ? AND target = ?
	`, owner.String(), target.String())
	return err
}

// IsBlocked reports whether owner has blocked target.
func (s *SQLiteStore) IsBlocked(ctx context.Context, owner, target uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blocks WHERE owner = ? AND target = ?
	`, owner.String(), target.String()).Scan(&n)
	return n > 0, err
}

// GetChat retrieves a chat by ID.
func (s *SQLiteStore) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return s.scanChat(s.db.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, last_message_id, last_message_at, created_at
		FROM chats WHERE id = ?
	`, id.String()))
}

// FindChatByParticipants retrieves the chat for the unordered pair (a, b).
func (s *SQLiteStore) FindChatByParticipants(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	pa, pb := models.NormalizePair(a, b)
	return s.scanChat(s.db.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, last_message_id, last_message_at, created_at
		FROM chats WHERE participant_a = ? AND participant_b = ?
	`, pa.String(), pb.String()))
}

// CreateChat inserts a chat for the pair if absent and returns the row for
// the pair either way. The unique constraint over the normalized pair makes
// concurrent creation converge on one row.
func (s *SQLiteStore) CreateChat(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	pa, pb := models.NormalizePair(a, b)
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chats (id, participant_a, participant_b, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), pa.String(), pb.String(), now)
	if err != nil {
		return nil, err
	}

	return s.FindChatByParticipants(ctx, pa, pb)
}

// ListChatsForUser retrieves a user's chats ordered by recency.
func (s *SQLiteStore) ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_a, participant_b, last_message_id, last_message_at, created_at
		FROM chats
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY last_message_at DESC, created_at DESC
	`, userID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		chat, err := s.scanChatRows(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

// SetChatLastMessage updates the last-message pointer unless a newer message
// already holds it.
func (s *SQLiteStore) SetChatLastMessage(ctx context.Context, chatID uuid.UUID, messageID string, at int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats
		SET last_message_id = ?, last_message_at = ?
		WHERE id = ? AND last_message_at <= ?
	`, messageID, at, chatID.String(), at)
	return err
}

// InsertMessage persists a message row. Guest messages are never inserted;
// the sender reference is required.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	snapshot := ""
	if msg.ReplySnapshot != nil {
		data, err := json.Marshal(msg.ReplySnapshot)
		if err != nil {
			return err
		}
		snapshot = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_kind, room_id, sender_id, text, media_url, media_kind, reply_to_id, reply_snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, string(msg.RoomKind), msg.RoomID, msg.SenderID, msg.Text,
		msg.MediaURL, msg.MediaKind, msg.ReplyToID, snapshot, msg.CreatedAt)
	return err
}

// GetMessage retrieves a message by ID with sender info attached.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.room_kind, m.room_id, m.sender_id, m.text, m.media_url,
		       m.media_kind, m.reply_to_id, m.reply_snapshot, m.created_at,
		       u.username, u.avatar
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?
	`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListMessages retrieves up to limit messages from a room, newest first,
// strictly older than before when given.
func (s *SQLiteStore) ListMessages(ctx context.Context, kind models.RoomKind, roomID string, limit int, before int64) ([]models.Message, error) {
	query := `
		SELECT m.id, m.room_kind, m.room_id, m.sender_id, m.text, m.media_url,
		       m.media_kind, m.reply_to_id, m.reply_snapshot, m.created_at,
		       u.username, u.avatar
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room_kind = ? AND m.room_id = ?`
	args := []interface{}{string(kind), roomID}

	if before > 0 {
		query += ` AND m.created_at < ?`
		args = append(args, before)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) DeleteMessagesBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE created_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountMessagesBySender counts persisted messages by sender.
func (s *SQLiteStore) CountMessagesBySender(ctx context.Context, senderID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.sender_id = ?
	`, senderID.String()).Scan(&count)
	return count, err
}

// InsertReport files a report against a message.
func (s *SQLiteStore) InsertReport(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, message_id, reporter_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, report.ID.String(), report.MessageID, report.ReporterID.String(), report.Reason, time.Now())
	return err
}

// CountUsers counts registered accounts.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountChats counts personal rooms.
func (s *SQLiteStore) CountChats(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n)
	return n, err
}

// CountMessages counts durable messages across all rooms.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// LastMessageAt returns the createdAt of the newest durable message, 0 when
// the table is empty.
func (s *SQLiteStore) LastMessageAt(ctx context.Context) (int64, error) {
	var at int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(created_at), 0) FROM messages`).Scan(&at)
	return at, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanChat(row rowScanner) (*models.Chat, error) {
	chat, err := s.scanChatRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return chat, nil
}

func (s *SQLiteStore) scanChatRows(row rowScanner) (*models.Chat, error) {
	chat := &models.Chat{}
	var idStr, aStr, bStr string
	err := row.Scan(
		&idStr,
		&aStr,
		&bStr,
		&chat.LastMessageID,
		&chat.LastMessageAt,
		&chat.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	chat.ID = uuid.MustParse(idStr)
	chat.ParticipantA = uuid.MustParse(aStr)
	chat.ParticipantB = uuid.MustParse(bStr)
	return chat, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var kind, snapshot, senderName, senderAvatar string
	err := row.Scan(
		&msg.ID,
		&kind,
		&msg.RoomID,
		&msg.SenderID,
		&msg.Text,
		&msg.MediaURL,
		&msg.MediaKind,
		&msg.ReplyToID,
		&snapshot,
		&msg.CreatedAt,
		&senderName,
		&senderAvatar,
	)
	if err != nil {
		return nil, err
	}
	msg.RoomKind = models.RoomKind(kind)
	msg.Sender = &models.SenderSnapshot{ID: msg.SenderID, Name: senderName, Avatar: senderAvatar}
	if snapshot != "" {
		var rs models.ReplySnapshot
		if err := json.Unmarshal([]byte(snapshot), &rs); err == nil {
			msg.ReplySnapshot = &rs
		}
	}
	return msg, nil
}
