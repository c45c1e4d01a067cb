package ws

import (
	"sync"
)

// DeliveryMode names how a message fans out: to one user's connections, to
// every connection, or both.
type DeliveryMode int

const (
	DeliverToUser DeliveryMode = iota
	DeliverBroadcast
	DeliverBoth
)

// Hub tracks live connections and fans messages out to them. All map access
// goes through the mutex; Register/Unregister are serviced by the Run loop.
type Hub struct {
	Register   chan *ClientConnection
	Unregister chan *ClientConnection

	clients   map[*ClientConnection]bool
	userConns map[uint][]*ClientConnection
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *ClientConnection),
		Unregister: make(chan *ClientConnection),
		clients:    make(map[*ClientConnection]bool),
		userConns:  make(map[uint][]*ClientConnection),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.userConns[client.UserID] = append(h.userConns[client.UserID], client)
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				conns := h.userConns[client.UserID]
				for i, conn := range conns {
					if conn == client {
						h.userConns[client.UserID] = append(conns[:i], conns[i+1:]...)
						break
					}
				}
				if len(h.userConns[client.UserID]) == 0 {
					delete(h.userConns, client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Deliver fans a payload out according to the requested mode. Messages are
// fire-and-forget: a connection with a full send buffer misses the message
// rather than blocking the caller.
func (h *Hub) Deliver(mode DeliveryMode, userID uint, payload []byte) {
	switch mode {
	case DeliverToUser:
		h.BroadcastToUser(userID, payload)
	case DeliverBroadcast:
		h.BroadcastAll(payload)
	case DeliverBoth:
		h.BroadcastToUser(userID, payload)
		h.BroadcastAll(payload)
	}
}

// BroadcastToUser sends a payload to every connection the user has open.
func (h *Hub) BroadcastToUser(userID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userConns[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// BroadcastAll sends a payload to every connection on the hub.
func (h *Hub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// ConnectedUsers reports which user IDs currently have at least one
// connection open.
func (h *Hub) ConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint, 0, len(h.userConns))
	for userID := range h.userConns {
		users = append(users, userID)
	}
	return users
}
