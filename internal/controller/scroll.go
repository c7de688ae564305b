package controller

import "time"

// scrollState is the per-conversation scroll-pause machine: while the user
// is actively scrolling the history, auto-follow of new messages is
// suppressed. Each scroll notification replaces the live timer; a stale
// expiry is recognized by its generation and ignored.
type scrollState struct {
	paused bool
	timer  *time.Timer
	gen    uint64
}

type scrollCmd struct {
	conversationID string
}

func (cmd *scrollCmd) apply(c *Controller) {
	st, ok := c.scrolling[cmd.conversationID]
	if !ok {
		st = &scrollState{}
		c.scrolling[cmd.conversationID] = st
	}
	st.paused = true
	if st.timer != nil {
		st.timer.Stop()
	}
	st.gen++
	gen := st.gen
	conversationID := cmd.conversationID
	st.timer = time.AfterFunc(c.scrollPause, func() {
		c.enqueue(&scrollExpiredCmd{conversationID: conversationID, gen: gen})
	})
}

type scrollExpiredCmd struct {
	conversationID string
	gen            uint64
}

func (cmd *scrollExpiredCmd) apply(c *Controller) {
	st, ok := c.scrolling[cmd.conversationID]
	if !ok || st.gen != cmd.gen {
		return
	}
	st.paused = false
	st.timer = nil
}
