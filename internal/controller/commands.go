package controller

import (
	"errors"
	"strings"

	"chatsphere/internal/domain"
	"chatsphere/internal/events"
	chat_errors "chatsphere/pkg/errors"
)

// command is one serialized mutation. apply runs on the queue goroutine with
// the controller write-locked.
type command interface {
	apply(c *Controller)
}

// syncCommand wraps a command whose caller blocks until it is applied.
type syncCommand struct {
	inner   command
	applied chan struct{}
}

func (s *syncCommand) apply(c *Controller) {
	s.inner.apply(c)
	close(s.applied)
}

// focusCmd switches the focused conversation: badge reset, lazy history load.
type focusCmd struct {
	conversationID string
}

func (cmd *focusCmd) apply(c *Controller) {
	c.focused = cmd.conversationID
	c.unseen.Reset(cmd.conversationID)
	c.publish(Update{
		Type:           events.UpdateUnseenChanged,
		ConversationID: cmd.conversationID,
		Unseen:         0,
	})
	if !c.store.Loaded(cmd.conversationID) {
		c.wg.Add(1)
		go c.loadHistoryWorker(cmd.conversationID)
	}
}

// appendPendingCmd inserts the optimistic entry for a fresh send.
type appendPendingCmd struct {
	msg domain.Message
}

func (cmd *appendPendingCmd) apply(c *Controller) {
	c.store.AppendPending(cmd.msg)
	msg := cmd.msg
	c.publish(Update{
		Type:           events.UpdateMessageCreated,
		ConversationID: msg.ConversationID,
		Message:        &msg,
	})
}

// sendResultCmd reconciles a send completion with its optimistic entry,
// matched by correlation ID to survive out-of-order completions.
type sendResultCmd struct {
	conversationID string
	clientID       string
	confirmed      domain.Message
	err            error
}

func (cmd *sendResultCmd) apply(c *Controller) {
	if cmd.err == nil {
		if c.store.ReconcileSend(cmd.conversationID, cmd.clientID, cmd.confirmed) {
			msg, _ := c.store.Find(cmd.conversationID, cmd.confirmed.ID)
			c.publish(Update{
				Type:           events.UpdateMessageUpdated,
				ConversationID: cmd.conversationID,
				Message:        &msg,
			})
		}
		return
	}

	if errors.Is(cmd.err, chat_errors.ErrUpload) {
		// Attachment discarded, text preserved for resubmission. A draft
		// that was attachment-only has nothing left to resend, so it is
		// dropped instead of parked in the failed state.
		if stripped, ok := c.store.StripAttachment(cmd.conversationID, cmd.clientID); ok {
			if strings.TrimSpace(stripped.Text) == "" {
				dropped, _ := c.store.Drop(cmd.conversationID, cmd.clientID)
				c.log.Warnf("send failed for conversation %s, draft discarded: %v", cmd.conversationID, cmd.err)
				c.publish(Update{
					Type:           events.UpdateMessageDeleted,
					ConversationID: cmd.conversationID,
					Message:        &dropped,
					Reason:         cmd.err.Error(),
				})
				return
			}
		}
	}
	if !c.store.MarkFailed(cmd.conversationID, cmd.clientID) {
		return
	}
	c.log.Warnf("send failed for conversation %s: %v", cmd.conversationID, cmd.err)
	var failed *domain.Message
	for _, m := range c.store.Messages(cmd.conversationID) {
		if m.ClientID == cmd.clientID {
			msg := m
			failed = &msg
			break
		}
	}
	c.publish(Update{
		Type:           events.UpdateMessageFailed,
		ConversationID: cmd.conversationID,
		Message:        failed,
		Reason:         cmd.err.Error(),
	})
}

// retryCmd flips a failed entry back to pending and resends the same draft.
type retryCmd struct {
	conversationID string
	clientID       string
	ok             bool
}

func (cmd *retryCmd) apply(c *Controller) {
	msg, ok := c.store.RetryPending(cmd.conversationID, cmd.clientID)
	cmd.ok = ok
	if !ok {
		return
	}
	c.publish(Update{
		Type:           events.UpdateMessageUpdated,
		ConversationID: cmd.conversationID,
		Message:        &msg,
	})
	c.wg.Add(1)
	go c.sendWorker(msg)
}

// discardCmd drops a failed entry at the user's request.
type discardCmd struct {
	conversationID string
	clientID       string
	ok             bool
}

func (cmd *discardCmd) apply(c *Controller) {
	msg, ok := c.store.Discard(cmd.conversationID, cmd.clientID)
	cmd.ok = ok
	if !ok {
		return
	}
	c.publish(Update{
		Type:           events.UpdateMessageDeleted,
		ConversationID: cmd.conversationID,
		Message:        &msg,
	})
}

// deleteCmd optimistically removes a message and starts the server delete.
type deleteCmd struct {
	conversationID string
	messageID      string
	err            error
}

func (cmd *deleteCmd) apply(c *Controller) {
	removed, index, ok := c.store.Remove(cmd.conversationID, cmd.messageID)
	if !ok {
		cmd.err = chat_errors.ErrNotFound
		return
	}
	c.publish(Update{
		Type:           events.UpdateMessageDeleted,
		ConversationID: cmd.conversationID,
		Message:        &removed,
	})
	c.wg.Add(1)
	go c.deleteWorker(removed, index)
}

// deleteResultCmd finishes a delete: confirmed removals keep their tombstone,
// failures restore the message at its original index and surface the
// rollback explicitly.
type deleteResultCmd struct {
	removed domain.Message
	index   int
	err     error
}

func (cmd *deleteResultCmd) apply(c *Controller) {
	if cmd.err == nil {
		return
	}
	c.log.Warnf("delete failed for message %s, restoring: %v", cmd.removed.ID, cmd.err)
	c.store.Restore(cmd.removed, cmd.index)
	msg := cmd.removed
	c.publish(Update{
		Type:           events.UpdateMessageRestored,
		ConversationID: msg.ConversationID,
		Message:        &msg,
		Reason:         chat_errors.ErrDeleteFailed.Error(),
	})
}

// historyResultCmd installs a fetched (or cache-restored) window.
type historyResultCmd struct {
	conversationID string
	msgs           []domain.Message
	fromCache      bool
	err            error
}

func (cmd *historyResultCmd) apply(c *Controller) {
	if cmd.err != nil {
		c.log.Warnf("history load failed for conversation %s: %v", cmd.conversationID, cmd.err)
		if cmd.fromCache {
			c.store.SeedHistory(cmd.conversationID, cmd.msgs)
		}
		c.publish(Update{
			Type:           events.UpdateHistoryFailed,
			ConversationID: cmd.conversationID,
			Reason:         cmd.err.Error(),
		})
		return
	}
	c.store.ReplaceHistory(cmd.conversationID, cmd.msgs)
	c.publish(Update{
		Type:           events.UpdateHistoryLoaded,
		ConversationID: cmd.conversationID,
	})
	c.snapshotToCache(cmd.conversationID)
}

// wireMessageCmd ingests an inbound message broadcast.
type wireMessageCmd struct {
	msg domain.Message
}

func (cmd *wireMessageCmd) apply(c *Controller) {
	msg := cmd.msg

	// A broadcast echo of our own in-flight send reconciles instead of
	// duplicating the entry.
	if msg.SenderID == c.self && msg.ClientID != "" {
		if c.store.ReconcileSend(msg.ConversationID, msg.ClientID, msg) {
			confirmed, _ := c.store.Find(msg.ConversationID, msg.ID)
			c.publish(Update{
				Type:           events.UpdateMessageUpdated,
				ConversationID: msg.ConversationID,
				Message:        &confirmed,
			})
			return
		}
	}

	if !c.store.Ingest(msg) {
		return
	}
	stored, _ := c.store.Find(msg.ConversationID, msg.ID)
	c.publish(Update{
		Type:           events.UpdateMessageCreated,
		ConversationID: msg.ConversationID,
		Message:        &stored,
	})
	if msg.ConversationID != c.focused {
		count := c.unseen.Increment(msg.ConversationID)
		c.publish(Update{
			Type:           events.UpdateUnseenChanged,
			ConversationID: msg.ConversationID,
			Unseen:         count,
		})
	}
	c.snapshotToCache(msg.ConversationID)
}

// wireDeleteCmd applies a remote deletion broadcast.
type wireDeleteCmd struct {
	conversationID string
	messageID      string
}

func (cmd *wireDeleteCmd) apply(c *Controller) {
	if c.store.Tombstoned(cmd.messageID) {
		// Echo of a delete we already applied optimistically.
		return
	}
	removed, _, ok := c.store.Remove(cmd.conversationID, cmd.messageID)
	if !ok {
		return
	}
	c.publish(Update{
		Type:           events.UpdateMessageDeleted,
		ConversationID: cmd.conversationID,
		Message:        &removed,
	})
	c.snapshotToCache(cmd.conversationID)
}

// wireTypingCmd applies a remote typing or typing_stop event.
type wireTypingCmd struct {
	conversationID string
	stop           bool
}

func (cmd *wireTypingCmd) apply(c *Controller) {
	if cmd.stop {
		c.typing.PeerStopped(cmd.conversationID)
	} else {
		c.typing.PeerTyping(cmd.conversationID)
	}
}

// wirePresenceCmd replaces the roster from a full snapshot.
type wirePresenceCmd struct {
	online []string
}

func (cmd *wirePresenceCmd) apply(c *Controller) {
	wentOffline := c.presence.ApplySnapshot(cmd.online)
	c.publish(Update{
		Type:   events.UpdatePresenceChanged,
		Online: append([]string(nil), cmd.online...),
	})
	if c.cache == nil || len(wentOffline) == 0 {
		return
	}
	for _, userID := range wentOffline {
		ts, ok := c.presence.LastSeen(userID)
		if !ok {
			continue
		}
		c.persistLastSeen(userID, ts)
	}
}
