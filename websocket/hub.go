package websocket

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Feed event types
const (
	GramCreated = "gram.created"
	GramUpdated = "gram.updated"
	GramDeleted = "gram.deleted"
)

// Hub maintains the set of active clients and broadcasts feed events to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Mutex for clients map
	clientsMux sync.RWMutex

	// Outbound events for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done chan struct{}
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the hub. It returns once Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMux.Lock()
			h.clients[client] = true
			h.clientsMux.Unlock()
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.clientsMux.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.clientsMux.Unlock()
		case <-h.done:
			h.clientsMux.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMux.Unlock()
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) remove(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// ClientCount reports how many clients are connected
func (h *Hub) ClientCount() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// Publish queues an event for every connected client
func (h *Hub) Publish(eventType string, payload interface{}) {
	msgBytes, err := json.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		logrus.WithError(err).WithField("type", eventType).Error("error marshaling feed event")
		return
	}

	select {
	case h.broadcast <- msgBytes:
	case <-h.done:
	}
}
