package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/config"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

// Client owns one WebSocket connection end-to-end. Identity and room are
// bound at connect time; the write pump is the single consumer of Send, so
// outbound envelopes reach the peer in enqueue order.
type Client struct {
	ID       string
	Identity *identity.Identity
	RoomID   string
	RoomSlug string

	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	// OnClose runs exactly once when the connection ends, regardless of
	// close reason. Set before starting the pumps.
	OnClose func(*Client)

	cfg       config.WebSocketConfig
	closeOnce sync.Once
}

// NewClient creates a client bound to an authenticated identity and a room.
func NewClient(id string, h *Hub, conn *websocket.Conn, ident *identity.Identity, roomID, roomSlug string, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:       id,
		Identity: ident,
		RoomID:   roomID,
		RoomSlug: roomSlug,
		Hub:      h,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		cfg:      cfg,
	}
}

// ReadPump reads inbound envelopes until the connection closes, passing each
// raw frame to handler. The shutdown path runs exactly once whether the loop
// ends by normal close, error, or forced disconnect.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer c.shutdown()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Debug().Err(err).Str(log.FieldClientID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump serializes outbound envelopes to the peer and keeps the
// connection alive with pings. It exits when Send is closed or a write
// fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEnvelope marshals an envelope onto this client's send queue. A full
// queue drops the envelope rather than blocking the caller.
func (c *Client) SendEnvelope(envelope interface{}) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
	default:
	}
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		if c.OnClose != nil {
			c.OnClose(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	})
}
