package main

import (
	"clean-care-backend/internal/api"
	"clean-care-backend/internal/api/router"
	"clean-care-backend/internal/app"
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

	stack, err := app.NewStack(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer stack.Close()

	server := api.NewAPIServer(
		":82",
		stack.Queue,
		stack.DB,
		nil,
		router.UtilsRoutes("/api/admin/v1", "admin"),
		router.AdminChatRoutes("/api/admin/v1", stack.Chat, stack.Rooms, stack.Limiter),
		router.AdminBotRoutes("/api/admin/v1", stack.Bot),
	)

	if err := server.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
