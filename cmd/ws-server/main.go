package main

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/router"
	"clean-care-backend/internal/app"
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/queue"
	"clean-care-backend/internal/websocket"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := app.Init(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueManager := queue.NewRequestQueueManager(10, 10)
	defer queueManager.Shutdown()

	redisClient := websocket.NewRedisClient(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))
	if redisClient == nil {
		log.Printf("CHAT_REDIS_URL not set, only local publishes reach clients")
	} else {
		defer redisClient.Close()
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)
	handler := websocket.NewHandler(ctx, hub, redisClient)

	server := api.NewAPIServer(
		":83",
		queueManager,
		nil,
		handler,
		router.UtilsRoutes("/api/ws/v1", "ws"),
		router.WebsocketRoutes("/api/ws/v1"),
	)

	if err := server.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
