// Package redfit provides client-side helpers for redfitchat consumers.
//
// View implements the reconnect contract: the server holds no per-client
// cursor, so after a connection gap a client re-fetches the most recent
// history page and merges it with whatever live broadcasts it already
// rendered. Merging is by message id with last-write-wins, so a message seen
// both ways appears exactly once.
package redfit

import (
	"sort"
	"sync"
)

// Message is the client-side message shape. Only the fields the merge cares
// about are typed; everything else rides along in Raw.
type Message struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	CreatedAt int64                  `json:"created_at"`
	Raw       map[string]interface{} `json:"-"`
}

// View is a deduplicated, chronologically ordered message list for one room.
// Safe for concurrent use by the socket reader and the history fetcher.
type View struct {
	mu       sync.RWMutex
	byID     map[string]int // message id -> index in order
	order    []Message
	arrivals int64 // tiebreak for equal timestamps
	seq      map[string]int64
}

// NewView creates an empty view.
func NewView() *View {
	return &View{
		byID: make(map[string]int),
		seq:  make(map[string]int64),
	}
}

// Apply merges one message, from either a broadcast event or a history page.
// A duplicate id replaces the earlier copy in place (last-write-wins) instead
// of producing a second entry.
func (v *View) Apply(msg Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if idx, ok := v.byID[msg.ID]; ok {
		v.order[idx] = msg
		return
	}

	v.arrivals++
	v.seq[msg.ID] = v.arrivals
	v.order = append(v.order, msg)
	v.byID[msg.ID] = len(v.order) - 1
	v.resort()
}

// ApplyPage merges a history page (any order).
func (v *View) ApplyPage(page []Message) {
	for _, msg := range page {
		v.Apply(msg)
	}
}

// Messages returns the merged view in chronological order.
func (v *View) Messages() []Message {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Message, len(v.order))
	copy(out, v.order)
	return out
}

// Len returns the number of distinct messages.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.order)
}

// OldestBefore returns the cursor for the next history page: the createdAt
// of the oldest message seen, or 0 when the view is empty.
func (v *View) OldestBefore() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.order) == 0 {
		return 0
	}
	return v.order[0].CreatedAt
}

// resort keeps order chronological; equal timestamps fall back to arrival
// order. Caller holds the write lock.
func (v *View) resort() {
	sort.SliceStable(v.order, func(i, j int) bool {
		if v.order[i].CreatedAt != v.order[j].CreatedAt {
			return v.order[i].CreatedAt < v.order[j].CreatedAt
		}
		return v.seq[v.order[i].ID] < v.seq[v.order[j].ID]
	})
	for i, msg := range v.order {
		v.byID[msg.ID] = i
	}
}
