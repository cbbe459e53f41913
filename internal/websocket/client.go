package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"healthtrack-realtime/internal/pkg/serverutils"
	"healthtrack-realtime/pkg/protocol"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	authWait       = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID is set once the auth frame is accepted.
	UserID uuid.UUID

	// Buffered channel of outbound frames.
	send chan []byte

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{Hub: hub, Conn: conn, send: make(chan []byte, sendBuffer)}
}

// enqueue reports false when the buffer is full. Frames for a closed client are discarded.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// markClose records the close frame the write pump sends once the queue is closed.
// The first recorded code wins.
func (c *Client) markClose(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeCode == 0 {
		c.closeCode = code
		c.closeReason = reason
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// closeFrame defaults to going away, used when the peer itself left.
func (c *Client) closeFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeCode == 0 {
		return websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	}
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

func (c *Client) reply(t protocol.EventType, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		return
	}
	c.enqueue(frame)
}

// authenticate waits for the auth frame. It writes directly to the connection because
// the write pump has not started yet.
func (c *Client) authenticate(secret string) bool {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(authWait))

	_, data, err := c.Conn.ReadMessage()
	if err != nil {
		c.Hub.logger.Warn("Client", "No auth frame before deadline", map[string]interface{}{"error": err.Error()})
		return false
	}

	var frame protocol.OutboundFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != protocol.FrameAuth {
		c.reject("authentication required")
		return false
	}

	userID, err := serverutils.ParseUserID(frame.Token, secret)
	if err != nil {
		c.Hub.logger.Warn("Client", "Auth frame rejected", map[string]interface{}{"error": err.Error()})
		c.reject("invalid token")
		return false
	}

	c.UserID = userID
	return true
}

func (c *Client) reject(reason string) {
	frame, _ := protocol.Encode(protocol.EventAuthError, protocol.ErrorPayload{Error: reason})

	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return
	}
	c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
}

// readPump pumps frames from the websocket connection until it fails.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame protocol.OutboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.reply(protocol.EventError, protocol.ErrorPayload{Error: "malformed frame"})
			continue
		}

		switch frame.Type {
		case protocol.FramePing:
			c.reply(protocol.EventPong, nil)
		case protocol.FrameAuth:
			c.reply(protocol.EventError, protocol.ErrorPayload{Error: "already authenticated"})
		default:
			c.reply(protocol.EventError, protocol.ErrorPayload{Error: "unknown frame type"})
		}
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, c.closeFrame())
				return
			}
			// one frame per message, the client decodes each text message as one JSON object
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
