package typing

import (
	"sync"
	"time"

	"chatsphere/internal/domain"
)

// Signal is an edge emitted by the coordinator. Local edges are what gets
// sent over the wire (typing / typing_stop); peer edges only feed the UI.
type Signal struct {
	ConversationID string
	Local          bool
	Typing         bool
}

// Coordinator runs the per-conversation typing state machines.
//
// Each conversation has two independent timers: a local debounce (input keeps
// refreshing it; expiry emits the false edge) and a peer expiry (a remote
// typing event keeps refreshing it; expiry flips peer-typing off even when no
// explicit stop ever arrives). A refresh replaces the live timer, it never
// stacks a second one, and a generation counter discards callbacks from
// timers that were superseded after firing.
type Coordinator struct {
	mu       sync.Mutex
	debounce time.Duration
	expiry   time.Duration
	states   map[string]*convState
	emit     func(Signal)
}

type convState struct {
	localTyping bool
	localTimer  *time.Timer
	localGen    uint64
	peerTyping  bool
	peerTimer   *time.Timer
	peerGen     uint64
}

// NewCoordinator creates a coordinator. emit is invoked outside the internal
// lock, once per state transition.
func NewCoordinator(debounce, expiry time.Duration, emit func(Signal)) *Coordinator {
	if emit == nil {
		emit = func(Signal) {}
	}
	return &Coordinator{
		debounce: debounce,
		expiry:   expiry,
		states:   make(map[string]*convState),
		emit:     emit,
	}
}

func (c *Coordinator) state(conversationID string) *convState {
	st, ok := c.states[conversationID]
	if !ok {
		st = &convState{}
		c.states[conversationID] = st
	}
	return st
}

// InputChanged is called on every local text-input change. A non-empty input
// emits the true edge at most once per continuous burst and (re)starts the
// debounce; an empty input short-circuits straight to the false edge.
func (c *Coordinator) InputChanged(conversationID string, hasText bool) {
	c.mu.Lock()
	st := c.state(conversationID)

	var edge *Signal
	if hasText {
		if !st.localTyping {
			st.localTyping = true
			edge = &Signal{ConversationID: conversationID, Local: true, Typing: true}
		}
		c.armLocal(conversationID, st)
	} else {
		if st.localTimer != nil {
			st.localTimer.Stop()
			st.localTimer = nil
		}
		st.localGen++
		if st.localTyping {
			st.localTyping = false
			edge = &Signal{ConversationID: conversationID, Local: true, Typing: false}
		}
	}
	c.mu.Unlock()

	if edge != nil {
		c.emit(*edge)
	}
}

func (c *Coordinator) armLocal(conversationID string, st *convState) {
	if st.localTimer != nil {
		st.localTimer.Stop()
	}
	st.localGen++
	gen := st.localGen
	st.localTimer = time.AfterFunc(c.debounce, func() {
		c.localExpired(conversationID, gen)
	})
}

func (c *Coordinator) localExpired(conversationID string, gen uint64) {
	c.mu.Lock()
	st := c.state(conversationID)
	if gen != st.localGen || !st.localTyping {
		c.mu.Unlock()
		return
	}
	st.localTyping = false
	st.localTimer = nil
	c.mu.Unlock()

	c.emit(Signal{ConversationID: conversationID, Local: true, Typing: false})
}

// PeerTyping handles a remote typing event: peer-typing flips true and the
// expiry window restarts.
func (c *Coordinator) PeerTyping(conversationID string) {
	c.mu.Lock()
	st := c.state(conversationID)

	var edge *Signal
	if !st.peerTyping {
		st.peerTyping = true
		edge = &Signal{ConversationID: conversationID, Typing: true}
	}
	if st.peerTimer != nil {
		st.peerTimer.Stop()
	}
	st.peerGen++
	gen := st.peerGen
	st.peerTimer = time.AfterFunc(c.expiry, func() {
		c.peerExpired(conversationID, gen)
	})
	c.mu.Unlock()

	if edge != nil {
		c.emit(*edge)
	}
}

// PeerStopped handles an explicit remote stop, short-circuiting the expiry.
func (c *Coordinator) PeerStopped(conversationID string) {
	c.mu.Lock()
	st := c.state(conversationID)

	var edge *Signal
	if st.peerTimer != nil {
		st.peerTimer.Stop()
		st.peerTimer = nil
	}
	st.peerGen++
	if st.peerTyping {
		st.peerTyping = false
		edge = &Signal{ConversationID: conversationID, Typing: false}
	}
	c.mu.Unlock()

	if edge != nil {
		c.emit(*edge)
	}
}

func (c *Coordinator) peerExpired(conversationID string, gen uint64) {
	c.mu.Lock()
	st := c.state(conversationID)
	if gen != st.peerGen || !st.peerTyping {
		c.mu.Unlock()
		return
	}
	st.peerTyping = false
	st.peerTimer = nil
	c.mu.Unlock()

	c.emit(Signal{ConversationID: conversationID, Typing: false})
}

// State returns the current typing view for a conversation.
func (c *Coordinator) State(conversationID string) domain.TypingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[conversationID]
	if !ok {
		return domain.TypingState{}
	}
	return domain.TypingState{LocalTyping: st.localTyping, PeerTyping: st.peerTyping}
}

// Shutdown stops every live timer. Pending edges are dropped.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.states {
		if st.localTimer != nil {
			st.localTimer.Stop()
			st.localTimer = nil
		}
		if st.peerTimer != nil {
			st.peerTimer.Stop()
			st.peerTimer = nil
		}
		st.localGen++
		st.peerGen++
	}
}
