package controller

import "chatsphere/internal/domain"

// Update is one observable state change pushed to the presentation layer.
// Anything that alters previously communicated optimistic state (a failed
// send, a rolled-back delete) travels here; it is never only logged.
type Update struct {
	Type           string              `json:"type"`
	ConversationID string              `json:"conversation_id,omitempty"`
	UserID         string              `json:"user_id,omitempty"`
	Message        *domain.Message     `json:"message,omitempty"`
	Typing         *domain.TypingState `json:"typing,omitempty"`
	Unseen         int                 `json:"unseen,omitempty"`
	Online         []string            `json:"online,omitempty"`
	Reason         string              `json:"reason,omitempty"`
}

// Subscribe registers an update listener. The returned cancel func must be
// called when the listener goes away. Slow listeners lose updates rather
// than stalling the session.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	ch := make(chan Update, 64)
	c.subs[id] = ch

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (c *Controller) publish(u Update) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
			// Listener is not keeping up, drop.
		}
	}
}

func (c *Controller) closeSubscribers() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
