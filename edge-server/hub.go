package main

import (
	"log"
	"sync"
	"time"
)

// HubStats tracks statistics for the hub
type HubStats struct {
	TotalClients    int       `json:"total_clients"`
	TotalBroadcasts int64     `json:"total_broadcasts"`
	StartedAt       time.Time `json:"started_at"`
	LastBroadcast   time.Time `json:"last_broadcast,omitempty"`
}

// Hub maintains the set of connected clients and fans state updates out
// to all of them.
type Hub struct {
	clients map[*Client]bool

	// Outbound state updates to fan out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	stats HubStats
	mu    sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		stats: HubStats{
			StartedAt: time.Now(),
		},
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.stats.TotalClients = len(h.clients)
			h.mu.Unlock()
			log.Printf("Client registered for user %s (total clients: %d)", client.userID, h.stats.TotalClients)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.stats.TotalClients = len(h.clients)
			}
			h.mu.Unlock()
			log.Printf("Client unregistered for user %s (total clients: %d)", client.userID, h.stats.TotalClients)

		case message := <-h.broadcast:
			h.mu.Lock()
			h.stats.TotalBroadcasts++
			h.stats.LastBroadcast = time.Now()
			h.mu.Unlock()

			h.fanOut(message)
		}
	}
}

// Broadcast queues a message for delivery to every connected client.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("Warning: broadcast channel full, dropping message")
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client can't keep up, disconnect it
			log.Printf("Client for user %s send buffer full, disconnecting", client.userID)
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// Stats returns current hub statistics
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// ClientCount returns the current number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
