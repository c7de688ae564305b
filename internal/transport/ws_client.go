package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatsphere/internal/config"
	"chatsphere/internal/events"
	chat_errors "chatsphere/pkg/errors"
	"chatsphere/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	maxBackoff     = 30 * time.Second
	initialBackoff = time.Second
)

// WSClient maintains the persistent event channel to the remote service. The
// read side hands every decoded envelope to the handler; the write side
// drains a buffered outbound channel so callers never block on a slow link.
// The connection reconnects with capped exponential backoff until Close.
type WSClient struct {
	url    string
	token  string
	handle func(events.Envelope)
	log    *logger.Logger

	send chan []byte
	done chan struct{}
	wg   sync.WaitGroup

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSClient(cfg config.Remote, token string, handle func(events.Envelope), log *logger.Logger) *WSClient {
	return &WSClient{
		url:    cfg.WebsocketURL,
		token:  token,
		handle: handle,
		log:    log,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Run dials and keeps the channel alive until Close. It blocks; run it on its
// own goroutine.
func (c *WSClient) Run() {
	backoff := initialBackoff
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, err := c.dial()
		if err != nil {
			c.log.Warnf("event channel dial failed, retrying in %s: %v", backoff, err)
			select {
			case <-time.After(backoff):
			case <-c.done:
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		c.log.Infof("event channel connected to %s", c.url)

		c.setConn(conn)
		stop := make(chan struct{})
		c.wg.Add(1)
		go c.writeLoop(conn, stop)
		c.readLoop(conn)
		close(stop)
		c.setConn(nil)
		_ = conn.Close()
	}
}

func (c *WSClient) dial() (*websocket.Conn, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.url, header)
	return conn, err
}

func (c *WSClient) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// readLoop decodes inbound envelopes and hands them to the controller. It
// returns when the connection drops; Run then reconnects.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warnf("event channel read failed: %v", err)
			}
			return
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warnf("dropping malformed event frame: %v", err)
			continue
		}
		c.handle(env)
	}
}

func (c *WSClient) writeLoop(conn *websocket.Conn, stop chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case <-stop:
			return
		case msg := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendTyping queues a typing edge for the peer. Typing signals are advisory;
// when the channel is down or the buffer is full the edge is dropped and the
// peer's own expiry timer cleans up.
func (c *WSClient) SendTyping(conversationID string, typing bool) error {
	eventType := events.WireTyping
	if !typing {
		eventType = events.WireTypingStop
	}
	env, err := events.NewEnvelope(eventType, events.TypingPayload{ConversationID: conversationID})
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return chat_errors.ErrNetwork
	}
}

// Close tears the channel down and stops reconnecting.
func (c *WSClient) Close() {
	close(c.done)
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
