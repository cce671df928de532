package websocket

import (
	"context"
	"sync"
)

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage, 64),
	}
}

// EnsureRoom creates the room if needed and reports whether it was created.
func (h *Hub) EnsureRoom(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rooms[id]; exists {
		return false
	}
	h.rooms[id] = &Room{Id: id, Clients: make(map[string]*WSClient)}
	setRooms(len(h.rooms))
	return true
}

func (h *Hub) RoomIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// ClientCount returns the number of clients in room id.
func (h *Hub) ClientCount(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[id]; ok {
		return len(room.Clients)
	}
	return 0
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			room, ok := h.rooms[client.RoomID]
			if ok {
				room.Clients[client.ID] = client
				incConnections()
			}
			h.mu.Unlock()
			if !ok {
				close(client.Message)
			}

		case client := <-h.Unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.RoomID]; ok {
				if _, ok := room.Clients[client.ID]; ok {
					delete(room.Clients, client.ID)
					close(client.Message)
					decConnections()
				}
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.Lock()
			room, ok := h.rooms[message.RoomID]
			if !ok {
				h.mu.Unlock()
				continue
			}
			delivered := 0
			for id, client := range room.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					// Slow consumer; drop it rather than block the hub.
					close(client.Message)
					delete(room.Clients, id)
					decConnections()
				}
			}
			h.mu.Unlock()
			if delivered > 0 {
				addDelivered(delivered)
			}
		}
	}
}
