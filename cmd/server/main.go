package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messly-backend/internal/config"
	"messly-backend/internal/database"
	"messly-backend/internal/handler"
	"messly-backend/internal/middleware"
	"messly-backend/internal/repository"
	"messly-backend/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	// Services
	verifier := service.NewTokenVerifier(userRepo, cfg.JWTSecret)
	registry := service.NewRegistry()
	blobs := service.NewBlobClient(cfg.WebsiteURL)
	delivery := service.NewDeliveryService(messageRepo, reactionRepo, chatRepo, registry, blobs)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health + metrics
	healthH := handler.NewHealthHandler(db)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1
	v1 := app.Group("/api/v1")
	chatH := handler.NewChatHandler(delivery)

	// Service-to-service announcements (website service key auth)
	v1.Post("/chats/system-message", middleware.ServerKey(cfg.ServerKey), chatH.SendSystemMessage)

	// Token-authenticated management actions
	authed := v1.Group("", middleware.Auth(verifier))
	authed.Delete("/chats/:chatID/messages", middleware.RateLimit(10, time.Minute), chatH.ClearHistory)
	authed.Delete("/messages/:messageID", middleware.RateLimit(30, time.Minute), chatH.DeleteMessage)
	authed.Post("/reactions", middleware.RateLimit(60, time.Minute), chatH.ToggleReaction)

	// WebSocket
	wsH := handler.NewWSHandler(registry, delivery, verifier)
	app.Get("/ws/chat/:chatID", wsH.Upgrade)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("Messly chat backend running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	registry.Shutdown()
	log.Println("Server stopped")
}
