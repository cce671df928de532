package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RoomPublisher delivers a payload to every client of a room, wherever the
// websocket server holding the client runs.
type RoomPublisher interface {
	Publish(ctx context.Context, roomID string, payload any) error
}

// RedisPublisher relays payloads through Redis pub/sub, one channel per room.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, roomID string, payload any) error {
	if roomID == "" {
		return fmt.Errorf("websocket publish: roomID required")
	}
	if p.client == nil {
		return fmt.Errorf("websocket publish: redis client not initialised")
	}

	messageJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal payload: %w", err)
	}

	if err := p.client.Publish(ctx, roomID, string(messageJSON)).Err(); err != nil {
		publishFailed("redis")
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	return nil
}

// NewRedisClient returns nil when addr is empty.
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}
