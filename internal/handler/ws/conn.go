package ws

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumichat/backend/internal/hub"
)

var errConnClosed = errors.New("connection closed")

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// wsConn adapts a gorilla websocket to hub.Conn. Outbound events go
// through a buffered channel drained by a single write pump, which
// keeps per-connection delivery ordered and websocket writes
// single-threaded.
type wsConn struct {
	id   string
	sock *websocket.Conn

	send chan hub.Event
	done chan struct{}
	once sync.Once
}

func newWSConn(id string, sock *websocket.Conn) *wsConn {
	return &wsConn{
		id:   id,
		sock: sock,
		send: make(chan hub.Event, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues an event for delivery. A connection that cannot drain its
// buffer is closed rather than allowed to stall the hub.
func (c *wsConn) Send(ev hub.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- ev:
		return nil
	default:
		log.Printf("[websocket] closing slow consumer %s", c.id)
		c.close()
		return errConnClosed
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		c.sock.Close()
	})
}

// writePump serializes all writes to the socket and keeps the
// connection alive with periodic pings.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
