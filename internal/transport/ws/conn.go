package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type wsConn struct {
	id     string
	conn   *websocket.Conn
	userID domain.UserID

	send      chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, userID domain.UserID, buffer int) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		conn:   c,
		userID: userID,
		send:   make(chan Message, buffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string            { return c.id }
func (c *wsConn) UserID() domain.UserID { return c.userID }

func (c *wsConn) Enqueue(msg Message) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// writeLoop: единственный писатель в сокет: сообщения из очереди и ping.
func (c *wsConn) writeLoop(pingEvery, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "user", int64(c.userID), "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
