package presence

import (
	"sync"
	"time"
)

// Tracker maintains the set of online user IDs from roster broadcasts plus a
// last-seen stamp per user. The upstream sends full snapshots, so each event
// replaces the set wholesale; a missed delta is corrected by the next
// snapshot, which is why no retry machinery exists here.
type Tracker struct {
	mu       sync.RWMutex
	online   map[string]struct{}
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		online:   make(map[string]struct{}),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// ApplySnapshot replaces the online set and stamps last-seen for every user
// that transitioned from online to absent. It returns the IDs that went
// offline so the caller can propagate the change.
func (t *Tracker) ApplySnapshot(onlineUserIDs []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[string]struct{}, len(onlineUserIDs))
	for _, id := range onlineUserIDs {
		next[id] = struct{}{}
	}

	var wentOffline []string
	stamp := t.now()
	for id := range t.online {
		if _, still := next[id]; !still {
			t.lastSeen[id] = stamp
			wentOffline = append(wentOffline, id)
		}
	}

	t.online = next
	return wentOffline
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[userID]
	return ok
}

// LastSeen returns the recorded offline-transition time. ok is false when the
// user has never been observed going offline this session.
func (t *Tracker) LastSeen(userID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.lastSeen[userID]
	return ts, ok
}

// SeedLastSeen installs a persisted last-seen stamp, typically restored from
// the cache at startup. Live observations always win.
func (t *Tracker) SeedLastSeen(userID string, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.lastSeen[userID]; !exists {
		t.lastSeen[userID] = ts
	}
}

// Online returns a copy of the current online set.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	return out
}
