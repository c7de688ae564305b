package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *recorder) record(s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recorder) snapshot() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

func TestLocalTrueEdgeFiresOncePerBurst(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(50*time.Millisecond, 50*time.Millisecond, rec.record)
	defer c.Shutdown()

	// A burst of keystrokes.
	c.InputChanged("peer-1", true)
	c.InputChanged("peer-1", true)
	c.InputChanged("peer-1", true)

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, Signal{ConversationID: "peer-1", Local: true, Typing: true}, got[0])
	assert.True(t, c.State("peer-1").LocalTyping)
}

func TestLocalDebounceExpiryEmitsFalseEdge(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(30*time.Millisecond, 30*time.Millisecond, rec.record)
	defer c.Shutdown()

	c.InputChanged("peer-1", true)

	assert.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) == 2 && got[1].Local && !got[1].Typing
	}, time.Second, 5*time.Millisecond)
	assert.False(t, c.State("peer-1").LocalTyping)
}

func TestLocalEmptyInputShortCircuits(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(time.Minute, time.Minute, rec.record)
	defer c.Shutdown()

	c.InputChanged("peer-1", true)
	c.InputChanged("peer-1", false)

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.True(t, got[0].Typing)
	assert.False(t, got[1].Typing)
	assert.False(t, c.State("peer-1").LocalTyping)
}

func TestPeerTypingExpiresWithoutStopEvent(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(time.Minute, 30*time.Millisecond, rec.record)
	defer c.Shutdown()

	c.PeerTyping("peer-1")
	assert.True(t, c.State("peer-1").PeerTyping)

	assert.Eventually(t, func() bool {
		return !c.State("peer-1").PeerTyping
	}, time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.False(t, got[1].Local)
	assert.False(t, got[1].Typing)
}

func TestPeerRefreshReplacesTimer(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(time.Minute, 60*time.Millisecond, rec.record)
	defer c.Shutdown()

	c.PeerTyping("peer-1")
	time.Sleep(40 * time.Millisecond)
	c.PeerTyping("peer-1")
	time.Sleep(40 * time.Millisecond)

	// The refresh superseded the first timer, so 80ms in we are still typing.
	assert.True(t, c.State("peer-1").PeerTyping)
	// Only the single true edge so far.
	require.Len(t, rec.snapshot(), 1)
}

func TestPeerStopShortCircuits(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(time.Minute, time.Minute, rec.record)
	defer c.Shutdown()

	c.PeerTyping("peer-1")
	c.PeerStopped("peer-1")

	assert.False(t, c.State("peer-1").PeerTyping)
	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.False(t, got[1].Typing)

	// A second stop is a no-op.
	c.PeerStopped("peer-1")
	require.Len(t, rec.snapshot(), 2)
}

func TestConversationsAreIndependent(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(time.Minute, time.Minute, rec.record)
	defer c.Shutdown()

	c.PeerTyping("peer-1")
	assert.True(t, c.State("peer-1").PeerTyping)
	assert.False(t, c.State("peer-2").PeerTyping)
}
