package chat

import "sync"

// roomState serializes appends for one room and tracks the last createdAt
// assigned there, so per-room timestamps are monotonic non-decreasing.
// Independent rooms never contend.
type roomState struct {
	sync.Mutex
	lastAssigned int64 // Unix ms
}

type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomState
}

func newRoomLocks() *roomLocks {
	return &roomLocks{rooms: make(map[string]*roomState)}
}

func (l *roomLocks) get(key string) *roomState {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.rooms[key]
	if !ok {
		st = &roomState{}
		l.rooms[key] = st
	}
	return st
}

// stamp assigns a createdAt under the room lock: the wall clock, bumped to
// the last assigned value if the clock reads earlier at equal-ms arrivals.
func (st *roomState) stamp(nowMs int64) int64 {
	if nowMs < st.lastAssigned {
		nowMs = st.lastAssigned
	}
	st.lastAssigned = nowMs
	return nowMs
}
