// Package app wires the stores, services and transports shared by the
// server binaries.
package app

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/events"
	internaljwt "clean-care-backend/internal/jwt"
	"clean-care-backend/internal/queue"
	"clean-care-backend/internal/ratelimit"
	botservice "clean-care-backend/internal/service/bot"
	chatservice "clean-care-backend/internal/service/chat"
	"clean-care-backend/internal/websocket"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultLanes          = 16
	laneDepth             = 64
	defaultRateLimitMax   = 30
	defaultRateLimitReset = time.Minute
)

// Init loads the environment and the token secrets and installs the JSON
// logger. Every binary calls it first.
func Init() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := env.Load(); err != nil {
		return err
	}
	return internaljwt.LoadSecrets()
}

type Stack struct {
	DB        *database.Database
	Queue     *queue.RequestQueueManager
	Bot       *botservice.Service
	Chat      *chatservice.Service
	Redis     *redis.Client
	Rooms     websocket.RoomPublisher
	Limiter   *ratelimit.Limiter
	lanes     *queue.ConversationLanes
	publisher events.Publisher
}

// NewStack opens the store and builds the chat and bot services. Redis and
// RabbitMQ are optional: without Redis, rate limiting is per process, no
// websocket fan-out happens and bot configuration is never cached; without
// AMQP_URL, events are dropped. With Redis, bot config edits are announced
// on botservice.ConfigChannel and every stack drops its cached copy.
func NewStack(ctx context.Context) (*Stack, error) {
	db, err := database.NewDatabase()
	if err != nil {
		return nil, fmt.Errorf("db init failed: %w", err)
	}

	s := &Stack{
		DB:        db,
		Queue:     queue.NewRequestQueueManager(10, 10),
		lanes:     queue.NewConversationLanes(env.GetInt(env.BotLanes, defaultLanes), laneDepth),
		publisher: events.Nop{},
	}

	if url := env.Get(env.AMQPURL); url != "" {
		pub, err := events.NewAMQPPublisher(ctx, events.ConnectionOptions{
			URL:           url,
			RetryAttempts: 5,
			Delay:         time.Second,
			MaxDelay:      10 * time.Second,
		}, env.GetOrDefault(env.AMQPExchange, "clean-care.chat"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("amqp init failed: %w", err)
		}
		s.publisher = pub
	}

	s.Redis = websocket.NewRedisClient(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))
	if s.Redis == nil {
		// Nothing can tell this process about edits made by another one.
		slog.Warn("CHAT_REDIS_URL not set, websocket fan-out disabled and bot config read uncached")
		s.Bot = botservice.New(db, botservice.WithConfigTTL(0))
	} else {
		s.Rooms = websocket.NewRedisPublisher(s.Redis)
		configSync := botservice.NewRedisConfigSync(s.Redis)
		s.Bot = botservice.New(db, botservice.WithConfigSync(configSync))
		if err := configSync.Listen(ctx, s.Bot.InvalidateConfig); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
	}

	s.Chat = chatservice.New(db, s.Bot, s.lanes, s.publisher)

	s.Limiter = ratelimit.New(
		s.Redis,
		env.GetInt(env.RateLimitMax, defaultRateLimitMax),
		env.GetDuration(env.RateLimitWindow, defaultRateLimitReset),
	)
	return s, nil
}

func (s *Stack) Close() {
	s.lanes.Shutdown()
	s.Queue.Shutdown()
	if err := s.publisher.Close(); err != nil {
		slog.Warn("event publisher close failed", "error", err)
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
}
