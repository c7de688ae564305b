package domain

// Conversation is the sidebar view of the thread between the current user
// and one peer. It is identified by the peer's user ID, created lazily on
// first activity and kept in memory for the rest of the session.
type Conversation struct {
	PeerID      string   `json:"peer_id"`
	Loaded      bool     `json:"loaded"`
	LastMessage *Message `json:"last_message,omitempty"`
	Unseen      int      `json:"unseen"`
	PeerOnline  bool     `json:"peer_online"`
}
