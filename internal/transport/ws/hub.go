package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	UserID() string // чей presence-канал слушает соединение
}

type Hub struct {
	mu    sync.RWMutex
	users map[string]map[Conn]struct{} // userID -> set of connections
}

func NewHub() *Hub {
	return &Hub{users: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cs, ok := h.users[c.UserID()]
	if !ok {
		cs = make(map[Conn]struct{})
		h.users[c.UserID()] = cs
	}
	cs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cs, ok := h.users[c.UserID()]; ok {
		delete(cs, c)
		if len(cs) == 0 {
			delete(h.users, c.UserID())
		}
	}
}

func (h *Hub) Broadcast(userID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if cs, ok := h.users[userID]; ok {
		for c := range cs {
			_ = c.Send(msg) // best-effort
		}
	}
}
