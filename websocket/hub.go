package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"roadwatch-service/models"

	"github.com/apex/log"
)

// Hub manages dashboard WebSocket connections and broadcasts hotspot updates
// to all of them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to all clients
	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mutex sync.RWMutex

	connectedClients int
	lastBroadcastAt  time.Time
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			log.Infof("Dashboard client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			log.Infof("Dashboard client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.lastBroadcastAt = time.Now()
			h.mutex.Unlock()
		}
	}
}

// BroadcastHotspots pushes updated hotspot rows to all connected dashboards.
func (h *Hub) BroadcastHotspots(locations []models.AggregatedLocation) {
	if len(locations) == 0 {
		return
	}

	message := models.BroadcastMessage{
		Type: "hotspots",
		Data: models.LocationsResponse{
			Locations: locations,
			Count:     len(locations),
		},
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.broadcast <- data
	clients, _ := h.GetStats()
	log.Infof("Broadcasted %d hotspot updates to %d clients", len(locations), clients)
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() (int, time.Time) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.lastBroadcastAt
}
