package controller

import (
	"context"
	"sync"
	"time"

	"chatsphere/internal/attachment"
	"chatsphere/internal/config"
	"chatsphere/internal/domain"
	"chatsphere/internal/presence"
	"chatsphere/internal/reply"
	"chatsphere/internal/store"
	"chatsphere/internal/typing"
	"chatsphere/internal/unseen"
	"chatsphere/pkg/logger"
)

// RemoteAPI is the request/response side of the transport collaborator.
type RemoteAPI interface {
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	PostMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error)
}

// Uploader is the media upload collaborator: bytes in, stable reference URL
// out.
type Uploader interface {
	Upload(ctx context.Context, ownerID string, att *domain.Attachment) (string, error)
}

// TypingSender pushes local typing edges onto the event channel.
type TypingSender interface {
	SendTyping(conversationID string, typing bool) error
}

// HistoryCache persists conversation snapshots and last-seen stamps across
// daemon restarts. All methods must tolerate being called concurrently.
type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]domain.Message, error)
	SetHistory(ctx context.Context, conversationID string, msgs []domain.Message) error
	GetLastSeen(ctx context.Context, userID string) (time.Time, bool, error)
	SetLastSeen(ctx context.Context, userID string, ts time.Time) error
}

// Controller owns the session state: the message store, the focused
// conversation, and the composition of the presence, typing and unseen
// components. Every mutation, whatever its source (user command, inbound
// broadcast, network completion, timer expiry), is serialized through a
// single intake queue so two concurrent events can never interleave
// inconsistently. Readers take snapshots under an RWMutex that only the
// queue goroutine write-locks.
type Controller struct {
	log  *logger.Logger
	self string

	api      RemoteAPI
	uploader Uploader
	wire     TypingSender
	cache    HistoryCache

	requestTimeout time.Duration

	mu        sync.RWMutex
	store     *store.Store
	focused   string
	scrolling map[string]*scrollState

	unseen    *unseen.Counter
	presence  *presence.Tracker
	typing    *typing.Coordinator
	validator *attachment.Validator

	scrollPause time.Duration

	intake chan command
	done   chan struct{}
	wg     sync.WaitGroup

	subMu  sync.Mutex
	subs   map[int]chan Update
	nextID int
}

// Options carries the collaborators. Uploader, wire and cache may be nil;
// the corresponding features degrade gracefully.
type Options struct {
	SelfID   string
	API      RemoteAPI
	Uploader Uploader
	Wire     TypingSender
	Cache    HistoryCache
	Log      *logger.Logger
}

func New(cfg *config.Config, opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	c := &Controller{
		log:            log,
		self:           opts.SelfID,
		api:            opts.API,
		uploader:       opts.Uploader,
		wire:           opts.Wire,
		cache:          opts.Cache,
		requestTimeout: cfg.Remote.RequestTimeout,
		store:          store.New(cfg.Sync.TombstoneRetention),
		scrolling:      make(map[string]*scrollState),
		unseen:         unseen.NewCounter(),
		presence:       presence.NewTracker(),
		validator:      attachment.NewValidator(cfg.Upload),
		scrollPause:    cfg.Sync.ScrollPause,
		intake:         make(chan command, 256),
		done:           make(chan struct{}),
		subs:           make(map[int]chan Update),
	}
	c.typing = typing.NewCoordinator(cfg.Sync.TypingDebounce, cfg.Sync.TypingExpiry, c.onTypingEdge)
	return c
}

// Start launches the mutation queue. It returns immediately; Close drains
// and stops it.
func (c *Controller) Start() {
	c.wg.Add(1)
	go c.run()
}

func (c *Controller) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case cmd := <-c.intake:
			c.mu.Lock()
			cmd.apply(c)
			c.mu.Unlock()
		}
	}
}

// Close stops the queue and all timers.
func (c *Controller) Close() {
	close(c.done)
	c.wg.Wait()
	c.typing.Shutdown()
	c.closeSubscribers()
}

// enqueue posts a command without waiting for it to be applied. Used for
// inbound wire events and async completions.
func (c *Controller) enqueue(cmd command) {
	select {
	case c.intake <- cmd:
	case <-c.done:
	}
}

// await posts a command and blocks until the queue has applied it. User
// intent goes through await so the optimistic effect is visible to the very
// next query.
func (c *Controller) await(cmd command) {
	applied := make(chan struct{})
	c.enqueue(&syncCommand{inner: cmd, applied: applied})
	select {
	case <-applied:
	case <-c.done:
	}
}

// --- read-only query surface ---

// Messages returns a copy of the loaded window for a conversation.
func (c *Controller) Messages(conversationID string) []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Messages(conversationID)
}

// TypingState returns the typing view for a conversation.
func (c *Controller) TypingState(conversationID string) domain.TypingState {
	return c.typing.State(conversationID)
}

// UnseenCount returns the badge count for a conversation.
func (c *Controller) UnseenCount(conversationID string) int {
	return c.unseen.Get(conversationID)
}

// IsOnline reports whether the peer is in the current roster.
func (c *Controller) IsOnline(userID string) bool {
	return c.presence.IsOnline(userID)
}

// LastSeen returns the peer's last-seen stamp, falling back to the persisted
// cache when the session has not observed an offline transition yet.
func (c *Controller) LastSeen(userID string) (time.Time, bool) {
	if ts, ok := c.presence.LastSeen(userID); ok {
		return ts, true
	}
	if c.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
		defer cancel()
		if ts, ok, err := c.cache.GetLastSeen(ctx, userID); err == nil && ok {
			c.presence.SeedLastSeen(userID, ts)
			return ts, true
		}
	}
	return time.Time{}, false
}

// Conversations returns sidebar summaries for every conversation seen this
// session: last message, unseen badge, peer presence.
func (c *Controller) Conversations() []domain.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.store.ConversationIDs()
	out := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		conv := domain.Conversation{
			PeerID:     id,
			Loaded:     c.store.Loaded(id),
			Unseen:     c.unseen.Get(id),
			PeerOnline: c.presence.IsOnline(id),
		}
		if window := c.store.Messages(id); len(window) > 0 {
			last := window[len(window)-1]
			conv.LastMessage = &last
		}
		out = append(out, conv)
	}
	return out
}

// ReplyPreview resolves a message's reply reference within the loaded window
// and returns the parent (nil when it scrolled out or was deleted) plus the
// one-line preview text for rendering above the reply.
func (c *Controller) ReplyPreview(conversationID, messageID string) (*domain.Message, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.store.Find(conversationID, messageID)
	if !ok || msg.ReplyTo == "" {
		return nil, ""
	}
	parent := reply.Resolve(c.store.Messages(conversationID), msg.ReplyTo)
	return parent, reply.Preview(parent)
}

// Focused returns the currently focused conversation, empty when none.
func (c *Controller) Focused() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.focused
}

// ScrollPaused reports whether auto-follow is suppressed for a conversation.
func (c *Controller) ScrollPaused(conversationID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.scrolling[conversationID]
	return ok && st.paused
}
