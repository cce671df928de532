package main

import (
	"clean-care-backend/internal/database"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/seed"
	botservice "clean-care-backend/internal/service/bot"
	"clean-care-backend/internal/websocket"
	"context"
	"log"
	"log/slog"
	"time"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var opts []botservice.Option
	if redisClient := websocket.NewRedisClient(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass)); redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, botservice.WithConfigSync(botservice.NewRedisConfigSync(redisClient)))
	}

	res, err := seed.Apply(ctx, botservice.New(db, opts...), seed.Defaults())
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	slog.Info("bot seed completed", "created", res.Created, "updated", res.Updated, "rules", res.Rules)
}
