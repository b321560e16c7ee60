package controller

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient is one physical websocket connection. Writes are serialized
// because gorilla connections allow only one concurrent writer.
type wsClient struct {
	id     string
	userID uint64
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *wsClient) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub maps each user to their logical channel: the set of live connections
// opened by that user. Multiple tabs share one channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[uint64]map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{channels: make(map[uint64]map[*wsClient]struct{})}
}

// Register adds the connection to its user's channel
func (h *Hub) Register(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	channel, ok := h.channels[client.userID]
	if !ok {
		channel = make(map[*wsClient]struct{})
		h.channels[client.userID] = channel
	}
	channel[client] = struct{}{}
}

// Unregister removes the connection from its user's channel. Safe to call
// multiple times and for connections that were never registered.
func (h *Hub) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	channel, ok := h.channels[client.userID]
	if !ok {
		return
	}
	delete(channel, client)
	if len(channel) == 0 {
		delete(h.channels, client.userID)
	}
}

// Broadcast sends the frame to every connection in the user's channel.
// Delivery is best-effort: a write failure on one connection does not
// block the others and is not retried. A channel with no connections
// left drops the frame silently.
func (h *Hub) Broadcast(userID uint64, v interface{}) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.channels[userID]))
	for client := range h.channels[userID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		_ = client.send(v)
	}
}

// ConnectionCount reports how many connections the user's channel has
func (h *Hub) ConnectionCount(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[userID])
}
