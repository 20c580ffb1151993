package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errSendBufferFull = errors.New("ws: send buffer full")
var errConnClosed = errors.New("ws: connection closed")

type wsConn struct {
	conn   *websocket.Conn
	userID string

	out       chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(c *websocket.Conn, userID string, sendBuffer int) *wsConn {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &wsConn{
		conn:   c,
		userID: userID,
		out:    make(chan Message, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Send кладёт событие в исходящую очередь, не блокируясь: медленный
// подписчик теряет событие, но не задерживает остальных.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.out <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

func (c *wsConn) UserID() string { return c.userID }

// writeLoop — единственный писатель в соединение: очередь + пинги.
func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}
