package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newTestUser(t *testing.T, s *SQLiteStore, name string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), name, "")
	require.NoError(t, err)
	return user
}

func TestUserRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := newTestUser(t, s, "alice")

	got, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	missing, err := s.GetUserByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBlocks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")

	blocked, err := s.IsBlocked(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.BlockUser(ctx, alice.ID, bob.ID))
	// Idempotent
	require.NoError(t, s.BlockUser(ctx, alice.ID, bob.ID))

	blocked, err = s.IsBlocked(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	// One-directional
	blocked, err = s.IsBlocked(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.UnblockUser(ctx, alice.ID, bob.ID))
	blocked, err = s.IsBlocked(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCreateChatUniquePerUnorderedPair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")

	first, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Reversed pair resolves to the same room
	second, err := s.CreateChat(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	found, err := s.FindChatByParticipants(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	assert.True(t, found.HasParticipant(alice.ID))
	assert.True(t, found.HasParticipant(bob.ID))
	assert.False(t, found.HasParticipant(uuid.New()))
}

func TestListChatsForUserOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	carol := newTestUser(t, s, "carol")

	withBob, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	withCarol, err := s.CreateChat(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	require.NoError(t, s.SetChatLastMessage(ctx, withBob.ID, "m1", 1000))
	require.NoError(t, s.SetChatLastMessage(ctx, withCarol.ID, "m2", 2000))

	chats, err := s.ListChatsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, withCarol.ID, chats[0].ID, "most recent chat first")

	chats, err = s.ListChatsForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
}

func TestSetChatLastMessageKeepsNewerPointer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, s.SetChatLastMessage(ctx, chat.ID, "newer", 2000))
	// A stale writer must not win against a newer pointer
	require.NoError(t, s.SetChatLastMessage(ctx, chat.ID, "older", 1000))

	got, err := s.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.LastMessageID)
	assert.EqualValues(t, 2000, got.LastMessageAt)
}

func insertMessage(t *testing.T, s *SQLiteStore, id string, sender uuid.UUID, at int64) {
	t.Helper()
	require.NoError(t, s.InsertMessage(context.Background(), &models.Message{
		ID:        id,
		RoomKind:  models.RoomGlobal,
		RoomID:    models.GlobalRoomID,
		SenderID:  sender.String(),
		Text:      "msg " + id,
		CreatedAt: at,
	}))
}

func TestListMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		insertMessage(t, s, id, alice.ID, int64(1000+i*100))
	}

	page, err := s.ListMessages(ctx, models.RoomGlobal, models.GlobalRoomID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m5", page[0].ID, "newest first")
	assert.Equal(t, "m4", page[1].ID)

	// before is exclusive
	page, err = s.ListMessages(ctx, models.RoomGlobal, models.GlobalRoomID, 10, page[1].CreatedAt)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "m3", page[0].ID)
	assert.Equal(t, "m1", page[2].ID)

	// Sender info is joined in
	assert.NotNil(t, page[0].Sender)
	assert.Equal(t, "alice", page[0].Sender.Name)
}

func TestGetMessageWithReplySnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	require.NoError(t, s.InsertMessage(ctx, &models.Message{
		ID:        "m1",
		RoomKind:  models.RoomGlobal,
		RoomID:    models.GlobalRoomID,
		SenderID:  alice.ID.String(),
		Text:      "reply",
		ReplyToID: "m0",
		ReplySnapshot: &models.ReplySnapshot{
			OriginalID:     "m0",
			OriginalText:   "original",
			OriginalSender: "bob",
		},
		CreatedAt: 1000,
	}))

	got, err := s.GetMessage(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ReplySnapshot)
	assert.Equal(t, "original", got.ReplySnapshot.OriginalText)
	assert.Equal(t, "bob", got.ReplySnapshot.OriginalSender)

	missing, err := s.GetMessage(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteMessagesBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	insertMessage(t, s, "old1", alice.ID, 1000)
	insertMessage(t, s, "old2", alice.ID, 2000)
	insertMessage(t, s, "new1", alice.ID, 9000)

	deleted, err := s.DeleteMessagesBefore(ctx, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	page, err := s.ListMessages(ctx, models.RoomGlobal, models.GlobalRoomID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "new1", page[0].ID)
}

func TestInsertReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	insertMessage(t, s, "m1", alice.ID, 1000)

	require.NoError(t, s.InsertReport(ctx, &models.Report{
		MessageID:  "m1",
		ReporterID: bob.ID,
		Reason:     "spam",
	}))

	// A second report on the same message gets its own row
	require.NoError(t, s.InsertReport(ctx, &models.Report{
		MessageID:  "m1",
		ReporterID: bob.ID,
	}))
}

func TestAggregateCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	users, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, users)
	last, err := s.LastMessageAt(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	_, err = s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	insertMessage(t, s, "m1", alice.ID, 1000)
	insertMessage(t, s, "m2", bob.ID, 2500)

	users, err = s.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, users)

	chats, err := s.CountChats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, chats)

	messages, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, messages)

	last, err = s.LastMessageAt(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2500, last)
}

func TestCountMessagesBySender(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	insertMessage(t, s, "m1", alice.ID, 1000)
	insertMessage(t, s, "m2", alice.ID, 2000)
	insertMessage(t, s, "m3", bob.ID, 3000)

	count, err := s.CountMessagesBySender(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
