package bot

import (
	"clean-care-backend/internal/model"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// ConfigChannel carries the chat type of every catalog or rule edit.
const ConfigChannel = "bot.config.changed"

// ConfigSync tells the other processes that share the repository that the
// configuration of a chat type changed.
type ConfigSync interface {
	Announce(ctx context.Context, chatType model.ChatType) error
}

// RedisConfigSync announces edits over Redis pub/sub. Every process that
// caches configuration runs Listen.
type RedisConfigSync struct {
	client  *redis.Client
	channel string
}

func NewRedisConfigSync(client *redis.Client) *RedisConfigSync {
	return &RedisConfigSync{client: client, channel: ConfigChannel}
}

func (r *RedisConfigSync) Announce(ctx context.Context, chatType model.ChatType) error {
	if err := r.client.Publish(ctx, r.channel, string(chatType)).Err(); err != nil {
		return fmt.Errorf("bot config announce: %w", err)
	}
	return nil
}

// Listen calls invalidate for every announced chat type until ctx ends. It
// returns once the subscription is confirmed, so edits made after it returns
// are never missed.
func (r *RedisConfigSync) Listen(ctx context.Context, invalidate func(model.ChatType)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("bot config subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				chatType, valid := model.ParseChatType(msg.Payload)
				if !valid {
					slog.Warn("ignoring bot config announcement", "payload", msg.Payload)
					continue
				}
				invalidate(chatType)
			}
		}
	}()
	return nil
}
