package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsphere/internal/config"
	"chatsphere/internal/domain"
	"chatsphere/internal/events"
	chat_errors "chatsphere/pkg/errors"
	"chatsphere/pkg/logger"
)

type fakeAPI struct {
	mu         sync.Mutex
	history    map[string][]domain.Message
	historyErr error
	postErr    error
	deleteErr  error
	nextSeq    int64
	deleted    []string

	// Optional gates to hold a POST mid-flight.
	postStarted chan struct{}
	postRelease chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{history: make(map[string][]domain.Message), nextSeq: 100}
}

func (f *fakeAPI) GetMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[conversationID], nil
}

func (f *fakeAPI) PostMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	if f.postStarted != nil {
		f.postStarted <- struct{}{}
	}
	if f.postRelease != nil {
		<-f.postRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return domain.Message{}, f.postErr
	}
	f.nextSeq++
	confirmed := msg
	confirmed.ID = "m42"
	confirmed.Seq = f.nextSeq
	confirmed.Status = domain.StatusSent
	return confirmed, nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, update domain.ProfileUpdate) (domain.User, error) {
	return domain.User{ID: "me", FullName: update.FullName, Bio: update.Bio}, nil
}

type fakeUploader struct {
	err error
}

func (f *fakeUploader) Upload(_ context.Context, _ string, _ *domain.Attachment) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/uploads/x.png", nil
}

func testConfig() *config.Config {
	cfg, _ := config.LoadConfig()
	cfg.Remote.RequestTimeout = 2 * time.Second
	cfg.Sync.ScrollPause = 30 * time.Millisecond
	return cfg
}

func newTestController(t *testing.T, api RemoteAPI, up Uploader) *Controller {
	t.Helper()
	c := New(testConfig(), Options{
		SelfID:   "me",
		API:      api,
		Uploader: up,
		Log:      logger.NewNop(),
	})
	c.Start()
	t.Cleanup(c.Close)
	return c
}

func peerMsg(id string, seq int64, conv, text string) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: conv,
		SenderID:       conv,
		Text:           text,
		Seq:            seq,
		Status:         domain.StatusSent,
	}
}

func TestSendMessageOptimisticThenConfirmed(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(t, api, nil)

	msg, err := c.SendMessage("peer-1", DraftInput{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, msg.Status)

	// Pending entry is visible immediately.
	msgs := c.Messages("peer-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.StatusPending, msgs[0].Status)

	// Same list position now holds the confirmed message.
	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 && msgs[0].ID == "m42" && msgs[0].Status == domain.StatusSent
	}, time.Second, 5*time.Millisecond)
}

func TestSendMessageEmptyDraftRejected(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	_, err := c.SendMessage("peer-1", DraftInput{Text: "   "})
	assert.ErrorIs(t, err, chat_errors.ErrValidation)
	assert.Empty(t, c.Messages("peer-1"))
}

func TestSendMessageFailureStaysVisibleAndRetries(t *testing.T) {
	api := newFakeAPI()
	api.postErr = chat_errors.ErrNetwork
	c := newTestController(t, api, nil)

	msg, err := c.SendMessage("peer-1", DraftInput{Text: "hi"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 && msgs[0].Status == domain.StatusFailed
	}, time.Second, 5*time.Millisecond)

	api.mu.Lock()
	api.postErr = nil
	api.mu.Unlock()

	require.NoError(t, c.RetryMessage("peer-1", msg.ClientID))
	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 && msgs[0].Status == domain.StatusSent && msgs[0].Text == "hi"
	}, time.Second, 5*time.Millisecond)
}

func TestSendMessageDiscardAfterFailure(t *testing.T) {
	api := newFakeAPI()
	api.postErr = chat_errors.ErrNetwork
	c := newTestController(t, api, nil)

	msg, err := c.SendMessage("peer-1", DraftInput{Text: "hi"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 && msgs[0].Status == domain.StatusFailed
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.DiscardMessage("peer-1", msg.ClientID))
	assert.Empty(t, c.Messages("peer-1"))
	assert.ErrorIs(t, c.DiscardMessage("peer-1", msg.ClientID), chat_errors.ErrNotFound)
}

func TestUploadFailurePreservesTextDiscardsAttachment(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(t, api, &fakeUploader{err: errors.New("bucket unavailable")})

	_, err := c.SendMessage("peer-1", DraftInput{
		Text:     "look at this",
		FileName: "pic.png",
		FileData: []byte("bytes"),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 &&
			msgs[0].Status == domain.StatusFailed &&
			msgs[0].Attachment == nil &&
			msgs[0].Text == "look at this"
	}, time.Second, 5*time.Millisecond)
}

func TestUploadFailureAttachmentOnlyDraftDiscarded(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(t, api, &fakeUploader{err: errors.New("bucket unavailable")})

	updates, cancel := c.Subscribe()
	defer cancel()

	msg, err := c.SendMessage("peer-1", DraftInput{
		FileName: "pic.png",
		FileData: []byte("bytes"),
	})
	require.NoError(t, err)

	// With the attachment gone there is no content left to resend, so the
	// entry is removed instead of parked as failed.
	assert.Eventually(t, func() bool {
		return len(c.Messages("peer-1")) == 0
	}, time.Second, 5*time.Millisecond)

	sawDeleted := false
	for !sawDeleted {
		select {
		case u := <-updates:
			if u.Type == events.UpdateMessageDeleted && u.Message != nil && u.Message.ClientID == msg.ClientID {
				assert.NotEmpty(t, u.Reason)
				sawDeleted = true
			}
		case <-time.After(time.Second):
			t.Fatal("no delete update published for the emptied draft")
		}
	}

	// Nothing remains to retry, and no POST with empty content goes out.
	assert.ErrorIs(t, c.RetryMessage("peer-1", msg.ClientID), chat_errors.ErrNotFound)
}

func TestSendWorkerLeavesStoredAttachmentUntouched(t *testing.T) {
	api := newFakeAPI()
	api.postStarted = make(chan struct{})
	api.postRelease = make(chan struct{})
	c := newTestController(t, api, &fakeUploader{})

	_, err := c.SendMessage("peer-1", DraftInput{
		FileName: "pic.png",
		FileData: []byte("bytes"),
	})
	require.NoError(t, err)

	// Upload is done and the POST is in flight. The stored pending entry
	// must still hold the original draft attachment: the worker works on
	// its own copy and the swap only lands through the mutation queue.
	<-api.postStarted
	msgs := c.Messages("peer-1")
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Attachment)
	assert.Empty(t, msgs[0].Attachment.URL)
	assert.Equal(t, []byte("bytes"), msgs[0].Attachment.Data)

	close(api.postRelease)
	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 &&
			msgs[0].Status == domain.StatusSent &&
			msgs[0].Attachment != nil &&
			msgs[0].Attachment.URL != "" &&
			msgs[0].Attachment.Data == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSendMessageWithAttachmentUploadsFirst(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(t, api, &fakeUploader{})

	_, err := c.SendMessage("peer-1", DraftInput{
		FileName: "pic.png",
		FileData: []byte("bytes"),
		Caption:  "sunset",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 &&
			msgs[0].Status == domain.StatusSent &&
			msgs[0].Attachment != nil &&
			msgs[0].Attachment.URL != "" &&
			msgs[0].Attachment.Data == nil &&
			msgs[0].Attachment.Caption == "sunset"
	}, time.Second, 5*time.Millisecond)
}

func TestSendMessageRejectsBadAttachment(t *testing.T) {
	c := newTestController(t, newFakeAPI(), &fakeUploader{})

	_, err := c.SendMessage("peer-1", DraftInput{FileName: "setup.exe", FileData: []byte("x")})
	assert.ErrorIs(t, err, chat_errors.ErrValidation)

	_, err = c.SendMessage("peer-1", DraftInput{FileName: "big.mp4", FileSize: 301 * 1024 * 1024})
	assert.ErrorIs(t, err, chat_errors.ErrValidation)
}

func TestReceiveDuplicateIngestsOnce(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	env, err := events.NewEnvelope(events.WireMessage, peerMsg("m7", 7, "peer-1", "hello"))
	require.NoError(t, err)
	c.HandleWire(env)
	c.HandleWire(env)

	assert.Eventually(t, func() bool {
		return len(c.Messages("peer-1")) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, c.Messages("peer-1"), 1)
}

func TestUnseenIncrementsOnlyWhenNotFocused(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)
	c.FocusConversation("peer-2")

	env, _ := events.NewEnvelope(events.WireMessage, peerMsg("m1", 1, "peer-1", "one"))
	c.HandleWire(env)
	env, _ = events.NewEnvelope(events.WireMessage, peerMsg("m2", 2, "peer-1", "two"))
	c.HandleWire(env)
	env, _ = events.NewEnvelope(events.WireMessage, peerMsg("m3", 3, "peer-2", "focused"))
	c.HandleWire(env)

	assert.Eventually(t, func() bool {
		return c.UnseenCount("peer-1") == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.UnseenCount("peer-2"))

	c.FocusConversation("peer-1")
	assert.Equal(t, 0, c.UnseenCount("peer-1"))
}

func TestDeleteMessageConfirmed(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(t, api, nil)

	env, _ := events.NewEnvelope(events.WireMessage, peerMsg("m1", 1, "peer-1", "one"))
	c.HandleWire(env)
	require.Eventually(t, func() bool { return len(c.Messages("peer-1")) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.DeleteMessage("peer-1", "m1"))
	assert.Empty(t, c.Messages("peer-1"))

	// A late duplicate broadcast for the deleted ID is suppressed.
	c.HandleWire(env)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.Messages("peer-1"))
}

func TestDeleteMessageFailureRestoresAtOriginalIndex(t *testing.T) {
	api := newFakeAPI()
	api.deleteErr = chat_errors.ErrNetwork
	c := newTestController(t, api, nil)

	for i, id := range []string{"m1", "m2", "m3"} {
		env, _ := events.NewEnvelope(events.WireMessage, peerMsg(id, int64(i+1), "peer-1", id))
		c.HandleWire(env)
	}
	require.Eventually(t, func() bool { return len(c.Messages("peer-1")) == 3 }, time.Second, 5*time.Millisecond)

	updates, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.DeleteMessage("peer-1", "m2"))

	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 3 && msgs[1].ID == "m2" && msgs[1].Text == "m2"
	}, time.Second, 5*time.Millisecond)

	// The rollback is an explicit, observable status change.
	sawRestore := false
	for !sawRestore {
		select {
		case u := <-updates:
			if u.Type == events.UpdateMessageRestored && u.Message != nil && u.Message.ID == "m2" {
				sawRestore = true
			}
		case <-time.After(time.Second):
			t.Fatal("no restore update published")
		}
	}
}

func TestDeleteConflictTreatedAsSuccess(t *testing.T) {
	api := newFakeAPI()
	api.deleteErr = chat_errors.ErrConflict
	c := newTestController(t, api, nil)

	env, _ := events.NewEnvelope(events.WireMessage, peerMsg("m1", 1, "peer-1", "one"))
	c.HandleWire(env)
	require.Eventually(t, func() bool { return len(c.Messages("peer-1")) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.DeleteMessage("peer-1", "m1"))
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, c.Messages("peer-1"), "conflict means already deleted, no rollback")
}

func TestDeleteUnknownMessage(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)
	assert.ErrorIs(t, c.DeleteMessage("peer-1", "nope"), chat_errors.ErrNotFound)
}

func TestFocusLoadsHistoryOnce(t *testing.T) {
	api := newFakeAPI()
	api.history["peer-1"] = []domain.Message{
		peerMsg("m2", 2, "peer-1", "two"),
		peerMsg("m1", 1, "peer-1", "one"),
	}
	c := newTestController(t, api, nil)

	c.FocusConversation("peer-1")
	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 2 && msgs[0].ID == "m1" && msgs[1].ID == "m2"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "peer-1", c.Focused())
}

func TestPresenceSnapshotAndWireEvents(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	env, _ := events.NewEnvelope(events.WirePresence, events.PresencePayload{OnlineUserIDs: []string{"peer-1", "peer-2"}})
	c.HandleWire(env)
	assert.Eventually(t, func() bool { return c.IsOnline("peer-1") }, time.Second, 5*time.Millisecond)

	env, _ = events.NewEnvelope(events.WirePresence, events.PresencePayload{OnlineUserIDs: []string{"peer-2"}})
	c.HandleWire(env)
	assert.Eventually(t, func() bool { return !c.IsOnline("peer-1") }, time.Second, 5*time.Millisecond)

	_, seen := c.LastSeen("peer-1")
	assert.True(t, seen)
}

func TestRemoteDeleteBroadcast(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	env, _ := events.NewEnvelope(events.WireMessage, peerMsg("m1", 1, "peer-1", "one"))
	c.HandleWire(env)
	require.Eventually(t, func() bool { return len(c.Messages("peer-1")) == 1 }, time.Second, 5*time.Millisecond)

	env, _ = events.NewEnvelope(events.WireDelete, events.DeletePayload{ConversationID: "peer-1", MessageID: "m1"})
	c.HandleWire(env)
	assert.Eventually(t, func() bool { return len(c.Messages("peer-1")) == 0 }, time.Second, 5*time.Millisecond)
}

func TestPeerTypingViaWire(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	env, _ := events.NewEnvelope(events.WireTyping, events.TypingPayload{ConversationID: "peer-1", UserID: "peer-1"})
	c.HandleWire(env)
	assert.Eventually(t, func() bool { return c.TypingState("peer-1").PeerTyping }, time.Second, 5*time.Millisecond)

	env, _ = events.NewEnvelope(events.WireTypingStop, events.TypingPayload{ConversationID: "peer-1", UserID: "peer-1"})
	c.HandleWire(env)
	assert.Eventually(t, func() bool { return !c.TypingState("peer-1").PeerTyping }, time.Second, 5*time.Millisecond)
}

func TestScrollPauseExpires(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	c.NoteScroll("peer-1")
	assert.True(t, c.ScrollPaused("peer-1"))

	assert.Eventually(t, func() bool { return !c.ScrollPaused("peer-1") }, time.Second, 5*time.Millisecond)
}

func TestConversationSummaries(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)
	c.FocusConversation("peer-2")

	env, _ := events.NewEnvelope(events.WireMessage, peerMsg("m1", 1, "peer-1", "one"))
	c.HandleWire(env)
	env, _ = events.NewEnvelope(events.WireMessage, peerMsg("m2", 2, "peer-1", "two"))
	c.HandleWire(env)
	require.Eventually(t, func() bool { return c.UnseenCount("peer-1") == 2 }, time.Second, 5*time.Millisecond)

	env, _ = events.NewEnvelope(events.WirePresence, events.PresencePayload{OnlineUserIDs: []string{"peer-1"}})
	c.HandleWire(env)
	require.Eventually(t, func() bool { return c.IsOnline("peer-1") }, time.Second, 5*time.Millisecond)

	var convs []domain.Conversation
	require.Eventually(t, func() bool {
		convs = c.Conversations()
		return len(convs) == 2 && convs[1].Loaded
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "peer-1", convs[0].PeerID)
	assert.Equal(t, 2, convs[0].Unseen)
	assert.True(t, convs[0].PeerOnline)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "m2", convs[0].LastMessage.ID)
	assert.Equal(t, "peer-2", convs[1].PeerID)
}

func TestReplyPreviewResolvesWithinWindow(t *testing.T) {
	c := newTestController(t, newFakeAPI(), nil)

	env, _ := events.NewEnvelope(events.WireMessage, peerMsg("m1", 1, "peer-1", "original"))
	c.HandleWire(env)
	replying := peerMsg("m2", 2, "peer-1", "answer")
	replying.ReplyTo = "m1"
	env, _ = events.NewEnvelope(events.WireMessage, replying)
	c.HandleWire(env)
	require.Eventually(t, func() bool { return len(c.Messages("peer-1")) == 2 }, time.Second, 5*time.Millisecond)

	parent, preview := c.ReplyPreview("peer-1", "m2")
	require.NotNil(t, parent)
	assert.Equal(t, "m1", parent.ID)
	assert.Equal(t, "original", preview)

	// Deleting the parent leaves the reply dangling: nil parent, no error.
	require.NoError(t, c.DeleteMessage("peer-1", "m1"))
	parent, preview = c.ReplyPreview("peer-1", "m2")
	assert.Nil(t, parent)
	assert.Empty(t, preview)
}

func TestOwnBroadcastEchoReconcilesInsteadOfDuplicating(t *testing.T) {
	api := newFakeAPI()
	api.postErr = chat_errors.ErrTimeout
	c := newTestController(t, api, nil)

	msg, err := c.SendMessage("peer-1", DraftInput{Text: "hi"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 && msgs[0].Status == domain.StatusFailed
	}, time.Second, 5*time.Millisecond)

	// The POST actually landed server-side; the broadcast echo carries our
	// correlation ID and reconciles the optimistic entry.
	echo := domain.Message{
		ID:             "m42",
		ClientID:       msg.ClientID,
		ConversationID: "peer-1",
		SenderID:       "me",
		Text:           "hi",
		Seq:            101,
	}
	env, _ := events.NewEnvelope(events.WireMessage, echo)
	c.HandleWire(env)

	assert.Eventually(t, func() bool {
		msgs := c.Messages("peer-1")
		return len(msgs) == 1 && msgs[0].ID == "m42" && msgs[0].Status == domain.StatusSent
	}, time.Second, 5*time.Millisecond)
}
