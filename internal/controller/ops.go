package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatsphere/internal/domain"
	"chatsphere/internal/events"
	"chatsphere/internal/typing"
	chat_errors "chatsphere/pkg/errors"
)

// FocusConversation selects a conversation: its unseen count resets to zero
// and, on first selection, the history load kicks off. The conversation is
// created lazily and lives for the rest of the session.
func (c *Controller) FocusConversation(conversationID string) {
	c.await(&focusCmd{conversationID: conversationID})
}

// DraftInput is the raw send intent from the presentation layer. An
// attachment is either inline bytes awaiting upload or an already stable
// reference URL.
type DraftInput struct {
	Text     string
	ReplyTo  string
	FileName string
	FileData []byte
	FileURL  string
	FileSize int64
	Caption  string
}

// SendMessage validates the draft, inserts the optimistic pending entry (the
// caller sees it immediately at the tail) and issues the network call in the
// background. Validation failures are rejected here, before any network
// traffic, and are never retried automatically.
func (c *Controller) SendMessage(conversationID string, input DraftInput) (domain.Message, error) {
	draft := domain.Draft{Text: input.Text, ReplyTo: input.ReplyTo}

	if input.FileName != "" || len(input.FileData) > 0 || input.FileURL != "" {
		size := input.FileSize
		if size == 0 {
			size = int64(len(input.FileData))
		}
		kind, err := c.validator.Validate(input.FileName, size)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: %v", chat_errors.ErrValidation, err)
		}
		draft.Attachment = &domain.Attachment{
			Kind:      kind,
			Name:      input.FileName,
			SizeBytes: size,
			Data:      input.FileData,
			URL:       input.FileURL,
			Caption:   input.Caption,
		}
	}

	if err := draft.Validate(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", chat_errors.ErrValidation, err)
	}

	clientID := uuid.New().String()
	msg := domain.Message{
		ID:             clientID,
		ClientID:       clientID,
		ConversationID: conversationID,
		SenderID:       c.self,
		Text:           draft.Text,
		Attachment:     draft.Attachment,
		ReplyTo:        draft.ReplyTo,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now(),
	}

	c.await(&appendPendingCmd{msg: msg})
	c.wg.Add(1)
	go c.sendWorker(msg)
	return msg, nil
}

// RetryMessage resends a failed entry with its preserved draft.
func (c *Controller) RetryMessage(conversationID, clientID string) error {
	cmd := &retryCmd{conversationID: conversationID, clientID: clientID}
	c.await(cmd)
	if !cmd.ok {
		return chat_errors.ErrNotFound
	}
	return nil
}

// DiscardMessage drops a failed entry without resending.
func (c *Controller) DiscardMessage(conversationID, clientID string) error {
	cmd := &discardCmd{conversationID: conversationID, clientID: clientID}
	c.await(cmd)
	if !cmd.ok {
		return chat_errors.ErrNotFound
	}
	return nil
}

// DeleteMessage optimistically removes the message and confirms with the
// server. A failed confirmation restores the message at its original index
// and surfaces the rollback on the update stream.
func (c *Controller) DeleteMessage(conversationID, messageID string) error {
	cmd := &deleteCmd{conversationID: conversationID, messageID: messageID}
	c.await(cmd)
	return cmd.err
}

// SetTyping feeds a local text-input change into the typing state machine.
func (c *Controller) SetTyping(conversationID string, hasText bool) {
	c.typing.InputChanged(conversationID, hasText)
}

// NoteScroll marks the conversation as being scrolled; auto-follow stays
// suppressed until the pause window elapses with no further scrolling.
func (c *Controller) NoteScroll(conversationID string) {
	c.await(&scrollCmd{conversationID: conversationID})
}

// UpdateProfile proxies the profile mutation to the remote service. No local
// session state depends on the result, so it bypasses the mutation queue.
func (c *Controller) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.api.UpdateProfile(ctx, update)
}

// onTypingEdge handles coordinator transitions. Local edges go out on the
// wire and to the update stream; peer edges only feed the update stream.
// Typing state is owned by the coordinator, so no queue trip is needed here;
// that keeps timer callbacks from ever blocking on a busy intake.
func (c *Controller) onTypingEdge(sig typing.Signal) {
	if sig.Local && c.wire != nil {
		if err := c.wire.SendTyping(sig.ConversationID, sig.Typing); err != nil {
			c.log.Warnf("typing signal send failed: %v", err)
		}
	}
	state := c.typing.State(sig.ConversationID)
	c.publish(Update{
		Type:           events.UpdateTypingChanged,
		ConversationID: sig.ConversationID,
		Typing:         &state,
	})
}

// --- background workers ---

func (c *Controller) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.requestTimeout)
}

func (c *Controller) sendWorker(msg domain.Message) {
	defer c.wg.Done()
	ctx, cancel := c.opCtx()
	defer cancel()

	if msg.Attachment != nil && !msg.Attachment.Uploaded() {
		if c.uploader == nil {
			c.enqueue(&sendResultCmd{
				conversationID: msg.ConversationID,
				clientID:       msg.ClientID,
				err:            fmt.Errorf("%w: no uploader configured", chat_errors.ErrUpload),
			})
			return
		}
		// The stored pending entry shares this pointer; only the queue
		// goroutine writes stored state, so the worker mutates its own copy
		// and the swap lands via ReconcileSend.
		att := *msg.Attachment
		url, err := c.uploader.Upload(ctx, c.self, &att)
		if err != nil {
			c.enqueue(&sendResultCmd{
				conversationID: msg.ConversationID,
				clientID:       msg.ClientID,
				err:            fmt.Errorf("%w: %v", chat_errors.ErrUpload, err),
			})
			return
		}
		att.URL = url
		att.Data = nil
		msg.Attachment = &att
	}

	confirmed, err := c.api.PostMessage(ctx, msg)
	c.enqueue(&sendResultCmd{
		conversationID: msg.ConversationID,
		clientID:       msg.ClientID,
		confirmed:      confirmed,
		err:            err,
	})
}

func (c *Controller) deleteWorker(removed domain.Message, index int) {
	defer c.wg.Done()
	ctx, cancel := c.opCtx()
	defer cancel()

	err := c.api.DeleteMessage(ctx, removed.ID)
	if err != nil && errors.Is(err, chat_errors.ErrConflict) {
		// Server already deleted it: idempotent success.
		err = nil
	}
	c.enqueue(&deleteResultCmd{removed: removed, index: index, err: err})
}

func (c *Controller) loadHistoryWorker(conversationID string) {
	defer c.wg.Done()
	ctx, cancel := c.opCtx()
	defer cancel()

	msgs, err := c.api.GetMessages(ctx, conversationID)
	if err == nil {
		c.enqueue(&historyResultCmd{conversationID: conversationID, msgs: msgs})
		return
	}

	// Remote unreachable: bootstrap the window from the offline cache while
	// still surfacing the failure. Auth and validation errors skip the cache;
	// stale content must not mask them.
	var cached []domain.Message
	fromCache := false
	if c.cache != nil && chat_errors.IsRecoverable(err) {
		if snap, cacheErr := c.cache.GetHistory(ctx, conversationID); cacheErr == nil && len(snap) > 0 {
			cached = snap
			fromCache = true
		}
	}
	c.enqueue(&historyResultCmd{conversationID: conversationID, msgs: cached, fromCache: fromCache, err: err})
}

// snapshotToCache writes the current window through to the offline cache.
// Must be called with the controller locked; the write itself is async.
func (c *Controller) snapshotToCache(conversationID string) {
	if c.cache == nil {
		return
	}
	snapshot := c.store.Messages(conversationID)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := c.opCtx()
		defer cancel()
		if err := c.cache.SetHistory(ctx, conversationID, snapshot); err != nil {
			c.log.Warnf("history cache write failed for %s: %v", conversationID, err)
		}
	}()
}

func (c *Controller) persistLastSeen(userID string, ts time.Time) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := c.opCtx()
		defer cancel()
		if err := c.cache.SetLastSeen(ctx, userID, ts); err != nil {
			c.log.Warnf("last-seen cache write failed for %s: %v", userID, err)
		}
	}()
}
