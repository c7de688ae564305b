package unseen

import "sync"

// Counter tracks per-conversation badge counts: the number of messages that
// arrived while the conversation was not focused. Increment is driven only
// by message ingestion; Reset happens on focus and is idempotent.
type Counter struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

func (c *Counter) Increment(conversationID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[conversationID]++
	return c.counts[conversationID]
}

func (c *Counter) Reset(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, conversationID)
}

func (c *Counter) Get(conversationID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[conversationID]
}
