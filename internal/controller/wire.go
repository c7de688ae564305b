package controller

import (
	"chatsphere/internal/events"
)

// HandleWire routes one inbound event from the remote channel onto the
// mutation queue. Unknown or malformed events are logged and dropped; the
// channel itself stays healthy.
func (c *Controller) HandleWire(env events.Envelope) {
	switch env.Type {
	case events.WireMessage:
		msg, err := env.DecodeMessage()
		if err != nil {
			c.log.Warnf("bad message event: %v", err)
			return
		}
		c.enqueue(&wireMessageCmd{msg: msg})

	case events.WireTyping, events.WireTypingStop:
		p, err := env.DecodeTyping()
		if err != nil {
			c.log.Warnf("bad typing event: %v", err)
			return
		}
		c.enqueue(&wireTypingCmd{conversationID: p.ConversationID, stop: env.Type == events.WireTypingStop})

	case events.WirePresence:
		p, err := env.DecodePresence()
		if err != nil {
			c.log.Warnf("bad presence event: %v", err)
			return
		}
		c.enqueue(&wirePresenceCmd{online: p.OnlineUserIDs})

	case events.WireDelete:
		p, err := env.DecodeDelete()
		if err != nil {
			c.log.Warnf("bad delete event: %v", err)
			return
		}
		c.enqueue(&wireDeleteCmd{conversationID: p.ConversationID, messageID: p.MessageID})

	default:
		c.log.Warnf("unknown wire event type %q", env.Type)
	}
}
