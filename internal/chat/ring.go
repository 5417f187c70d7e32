package chat

import (
	"sync"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// Ring is a bounded buffer of guest-authored messages owned by the global
// room. Guest messages never persist as rows; the ring is the in-memory
// overlay that lets history fetches made during the process lifetime still
// see them. Eviction is FIFO at capacity; the buffer is lost on restart.
type Ring struct {
	mu   sync.RWMutex
	buf  []*models.Message
	head int
	size int
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 128
	}
	return &Ring{buf: make([]*models.Message, capacity)}
}

// Push appends a message, evicting the oldest entry at capacity.
func (r *Ring) Push(msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = msg
		r.size++
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
}

// Page returns up to limit buffered messages strictly older than before
// (0 means no bound), newest first.
func (r *Ring) Page(limit int, before int64) []models.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Message
	for i := r.size - 1; i >= 0 && len(out) < limit; i-- {
		msg := r.buf[(r.head+i)%len(r.buf)]
		if before > 0 && msg.CreatedAt >= before {
			continue
		}
		out = append(out, *msg)
	}
	return out
}

// Len returns the number of buffered messages.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
