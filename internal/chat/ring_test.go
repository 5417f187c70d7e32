package chat

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

func ringMsg(id string, at int64) *models.Message {
	return &models.Message{ID: id, RoomKind: models.RoomGlobal, RoomID: models.GlobalRoomID, CreatedAt: at}
}

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	r := NewRing(3)

	for i := 1; i <= 5; i++ {
		r.Push(ringMsg("m"+strconv.Itoa(i), int64(i*100)))
	}

	assert.Equal(t, 3, r.Len())
	page := r.Page(10, 0)
	require.Len(t, page, 3)
	assert.Equal(t, "m5", page[0].ID, "newest first")
	assert.Equal(t, "m3", page[2].ID, "oldest two evicted")
}

func TestRingPageBeforeIsExclusive(t *testing.T) {
	r := NewRing(10)
	r.Push(ringMsg("m1", 100))
	r.Push(ringMsg("m2", 200))
	r.Push(ringMsg("m3", 300))

	page := r.Page(10, 300)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].ID)
	assert.Equal(t, "m1", page[1].ID)

	page = r.Page(1, 0)
	require.Len(t, page, 1)
	assert.Equal(t, "m3", page[0].ID)
}

func TestRingEmpty(t *testing.T) {
	r := NewRing(4)
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Page(10, 0))
}
