package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

func TestJanitorSweepDeletesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "janitor.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	user, err := st.CreateUser(ctx, "alice", "")
	require.NoError(t, err)

	now := time.Now().UnixMilli()
	insert := func(id string, at int64) {
		require.NoError(t, st.InsertMessage(ctx, &models.Message{
			ID:        id,
			RoomKind:  models.RoomGlobal,
			RoomID:    models.GlobalRoomID,
			SenderID:  user.ID.String(),
			Text:      "m",
			CreatedAt: at,
		}))
	}
	insert("expired", now-8*24*time.Hour.Milliseconds())
	insert("fresh", now-time.Hour.Milliseconds())

	j := NewJanitor(st, 7*24*time.Hour, time.Hour, zerolog.Nop())
	j.Sweep(ctx)

	page, err := st.ListMessages(ctx, models.RoomGlobal, models.GlobalRoomID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "fresh", page[0].ID)
}
