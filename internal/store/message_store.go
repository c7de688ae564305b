package store

import (
	"sort"
	"strings"
	"time"

	"chatsphere/internal/domain"
)

// Store holds the ordered, deduplicated message sequence for every
// conversation in the session, arena-style: one slice per conversation with a
// status field per entry, rather than separate pending and confirmed
// collections that would have to be kept in sync.
//
// The store is a pure state machine and is not safe for concurrent use; the
// conversation controller serializes every mutation through its intake queue
// and is the only writer.
type Store struct {
	windows    map[string][]domain.Message
	loaded     map[string]bool
	tombstones map[string]time.Time
	retention  time.Duration
	now        func() time.Time
}

func New(tombstoneRetention time.Duration) *Store {
	return &Store{
		windows:    make(map[string][]domain.Message),
		loaded:     make(map[string]bool),
		tombstones: make(map[string]time.Time),
		retention:  tombstoneRetention,
		now:        time.Now,
	}
}

// Loaded reports whether history has been fetched for the conversation this
// session.
func (s *Store) Loaded(conversationID string) bool {
	return s.loaded[conversationID]
}

// ReplaceHistory swaps in the authoritative window fetched from the remote
// API. Confirmed entries are ordered by server sequence; any local entries
// still pending or failed are re-appended at the tail so an in-flight send is
// not lost by a concurrent history load.
func (s *Store) ReplaceHistory(conversationID string, history []domain.Message) {
	window := make([]domain.Message, len(history))
	copy(window, history)
	sort.SliceStable(window, func(i, j int) bool { return window[i].Seq < window[j].Seq })

	present := make(map[string]struct{}, len(window))
	for _, m := range window {
		present[m.ID] = struct{}{}
	}
	for _, m := range s.windows[conversationID] {
		if m.Status == domain.StatusPending || m.Status == domain.StatusFailed {
			if _, dup := present[m.ID]; !dup {
				window = append(window, m)
			}
		}
	}

	s.windows[conversationID] = window
	s.loaded[conversationID] = true
}

// SeedHistory installs a window restored from the offline cache. Unlike
// ReplaceHistory it does not mark the conversation loaded, so the next focus
// still fetches the authoritative history.
func (s *Store) SeedHistory(conversationID string, history []domain.Message) {
	if s.loaded[conversationID] || len(s.windows[conversationID]) > 0 {
		return
	}
	window := make([]domain.Message, len(history))
	copy(window, history)
	sort.SliceStable(window, func(i, j int) bool { return window[i].Seq < window[j].Seq })
	s.windows[conversationID] = window
}

// AppendPending inserts an optimistic entry at the tail.
func (s *Store) AppendPending(msg domain.Message) {
	s.windows[msg.ConversationID] = append(s.windows[msg.ConversationID], msg)
}

// ReconcileSend replaces the pending entry matching clientID, in place, with
// the server-confirmed message. The list position does not change. It returns
// false when no entry matches, e.g. after the user discarded a failed draft
// before the late completion arrived.
func (s *Store) ReconcileSend(conversationID, clientID string, confirmed domain.Message) bool {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ClientID == clientID {
			confirmed.ClientID = clientID
			confirmed.Status = domain.StatusSent
			window[i] = confirmed
			return true
		}
	}
	return false
}

// MarkFailed flips the pending entry to failed. The entry stays visible for a
// user-initiated retry or discard; it is never silently dropped.
func (s *Store) MarkFailed(conversationID, clientID string) bool {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ClientID == clientID {
			window[i].Status = domain.StatusFailed
			return true
		}
	}
	return false
}

// StripAttachment drops the attachment from an optimistic entry, preserving
// the text portion. Used when the media upload fails: the attachment is
// discarded but the draft text survives for resubmission. Returns the
// updated entry so the caller can see what content remains.
func (s *Store) StripAttachment(conversationID, clientID string) (domain.Message, bool) {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ClientID == clientID {
			window[i].Attachment = nil
			return window[i], true
		}
	}
	return domain.Message{}, false
}

// Drop removes an unconfirmed optimistic entry outright, whatever its
// status. Used when an upload failure leaves a draft with no content left to
// resubmit.
func (s *Store) Drop(conversationID, clientID string) (domain.Message, bool) {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ClientID == clientID && !window[i].Confirmed() {
			msg := window[i]
			s.windows[conversationID] = append(window[:i], window[i+1:]...)
			return msg, true
		}
	}
	return domain.Message{}, false
}

// RetryPending flips a failed entry back to pending for a user-initiated
// retry and returns a copy of the draft to resend. An entry that no longer
// carries any content (text and attachment both empty) is not a resendable
// draft and is refused.
func (s *Store) RetryPending(conversationID, clientID string) (domain.Message, bool) {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ClientID == clientID && window[i].Status == domain.StatusFailed {
			if strings.TrimSpace(window[i].Text) == "" && window[i].Attachment == nil {
				return domain.Message{}, false
			}
			window[i].Status = domain.StatusPending
			return window[i], true
		}
	}
	return domain.Message{}, false
}

// Discard removes a failed optimistic entry at the user's request.
func (s *Store) Discard(conversationID, clientID string) (domain.Message, bool) {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ClientID == clientID && window[i].Status == domain.StatusFailed {
			msg := window[i]
			s.windows[conversationID] = append(window[:i], window[i+1:]...)
			return msg, true
		}
	}
	return domain.Message{}, false
}

// Ingest inserts an inbound broadcast. Duplicate IDs and IDs inside the
// tombstone retention window are absorbed silently; the call reports whether
// the window actually grew.
func (s *Store) Ingest(msg domain.Message) bool {
	s.pruneTombstones()
	if _, dead := s.tombstones[msg.ID]; dead {
		return false
	}
	window := s.windows[msg.ConversationID]
	for i := range window {
		if window[i].ID == msg.ID {
			return false
		}
	}

	msg.Status = domain.StatusSent

	// Keep confirmed entries ordered by server sequence; pending entries are
	// pinned to the tail in local insertion order.
	insertAt := len(window)
	for i := len(window) - 1; i >= 0; i-- {
		if !window[i].Confirmed() {
			insertAt = i
			continue
		}
		if window[i].Seq <= msg.Seq {
			break
		}
		insertAt = i
	}

	window = append(window, domain.Message{})
	copy(window[insertAt+1:], window[insertAt:])
	window[insertAt] = msg
	s.windows[msg.ConversationID] = window
	return true
}

// Remove optimistically deletes a message, recording a tombstone so a late
// duplicate broadcast for the same ID is suppressed. The removed entry and
// its index are returned so a failed server delete can restore it exactly.
func (s *Store) Remove(conversationID, messageID string) (domain.Message, int, bool) {
	window := s.windows[conversationID]
	for i := range window {
		if window[i].ID == messageID {
			msg := window[i]
			s.windows[conversationID] = append(window[:i], window[i+1:]...)
			s.tombstones[messageID] = s.now().Add(s.retention)
			return msg, i, true
		}
	}
	return domain.Message{}, 0, false
}

// Restore undoes an optimistic removal after the server delete failed: the
// message reappears at its original index with its original content, and the
// tombstone is lifted so future broadcasts for it are ingested again.
func (s *Store) Restore(msg domain.Message, index int) {
	delete(s.tombstones, msg.ID)
	window := s.windows[msg.ConversationID]
	if index > len(window) {
		index = len(window)
	}
	window = append(window, domain.Message{})
	copy(window[index+1:], window[index:])
	window[index] = msg
	s.windows[msg.ConversationID] = window
}

// ConversationIDs lists every conversation with a window this session,
// sorted for stable output.
func (s *Store) ConversationIDs() []string {
	ids := make([]string, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Messages returns a copy of the conversation window.
func (s *Store) Messages(conversationID string) []domain.Message {
	window := s.windows[conversationID]
	out := make([]domain.Message, len(window))
	copy(out, window)
	return out
}

// Find looks a message up by server ID.
func (s *Store) Find(conversationID, messageID string) (domain.Message, bool) {
	for _, m := range s.windows[conversationID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return domain.Message{}, false
}

// Tombstoned reports whether the ID is inside the retention window.
func (s *Store) Tombstoned(messageID string) bool {
	s.pruneTombstones()
	_, ok := s.tombstones[messageID]
	return ok
}

func (s *Store) pruneTombstones() {
	now := s.now()
	for id, expiry := range s.tombstones {
		if now.After(expiry) {
			delete(s.tombstones, id)
		}
	}
}
