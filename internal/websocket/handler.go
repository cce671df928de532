package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler joins websocket clients to rooms and feeds the rooms from Redis.
// Without Redis, Publish delivers to this process's rooms only.
type Handler struct {
	hub         *Hub
	redisClient *redis.Client
	ctx         context.Context
}

func NewHandler(ctx context.Context, h *Hub, redisClient *redis.Client) *Handler {
	return &Handler{
		hub:         h,
		redisClient: redisClient,
		ctx:         ctx,
	}
}

func (h *Handler) subscribeToRoomChannel(roomID string) {
	log.Printf("Subscribing to Redis channel: %s", roomID)
	subscriber := h.redisClient.Subscribe(h.ctx, roomID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.Printf("Unsubscribed from Redis channel: %s", roomID)
				return
			}
			h.broadcast(roomID, json.RawMessage(msg.Payload))
		}
	}
}

// CreateRoom makes sure the room exists and, with Redis, that this process
// listens to the room's channel.
func (h *Handler) CreateRoom(id string) {
	if !h.hub.EnsureRoom(id) {
		return
	}
	if h.redisClient != nil {
		go h.subscribeToRoomChannel(id)
	}
}

func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request, roomID, userID string) {
	h.CreateRoom(roomID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("websocket upgrade for room %s failed: %v", roomID, err)
		return
	}

	cl := &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      uuid.NewString(),
		UserID:  userID,
		RoomID:  roomID,
		done:    make(chan struct{}),
	}

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
	log.Printf("Client %s (user %s) joined room %s", cl.ID, userID, roomID)
}

// Publish sends payload to the room through Redis, or straight to the local
// hub when Redis is not configured.
func (h *Handler) Publish(ctx context.Context, roomID string, payload any) error {
	if h.redisClient != nil {
		return NewRedisPublisher(h.redisClient).Publish(ctx, roomID, payload)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		publishFailed("local")
		return fmt.Errorf("websocket publish: marshal payload: %w", err)
	}
	h.broadcast(roomID, data)
	return nil
}

func (h *Handler) broadcast(roomID string, payload json.RawMessage) {
	msg := &WSMessage{
		Payload:   payload,
		RoomID:    roomID,
		Timestamp: time.Now().Unix(),
	}
	select {
	case h.hub.Broadcast <- msg:
	case <-h.ctx.Done():
	}
}
