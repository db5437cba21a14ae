package notification

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer bounds how far a slow client may lag before broadcasts
	// start skipping it.
	sendBuffer = 16
)

// wsConn is the slice of *websocket.Conn the client uses, extracted so tests
// can substitute a fake transport.
type wsConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
	RemoteAddr() net.Addr
}

// Client is one connected WebSocket subscriber. Inbound frames are treated
// as keep-alives and discarded; the connection exists only to push
// notifications.
type Client struct {
	hub    *Hub
	conn   wsConn
	send   chan Notification
	logger *zap.Logger
	done   chan struct{}
}

// ServeWS registers conn with the hub and starts its read/write pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	return serve(hub, conn, logger)
}

func serve(hub *Hub, conn wsConn, logger *zap.Logger) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan Notification, sendBuffer),
		logger: logger.Named("ws"),
		done:   make(chan struct{}),
	}

	hub.Register(c)
	go c.writePump()
	go c.readPump()

	return c
}

func (c *Client) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *Client) trySend(n Notification) bool {
	select {
	case <-c.done:
		return false
	case c.send <- n:
		return true
	default:
		return false
	}
}

// closeSend is called by the hub with its lock held, so it must not block.
func (c *Client) closeSend() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// readPump discards inbound frames and deregisters the client when the
// connection reports a definitive disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		// Any client frame counts as a keep-alive.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case n := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(n.envelope()); err != nil {
				c.logger.Debug("Failed to push notification", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
