package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-rooms/internal/config"
	"github.com/jwebster45206/story-rooms/internal/handlers"
	"github.com/jwebster45206/story-rooms/internal/logger"
	"github.com/jwebster45206/story-rooms/internal/middleware"
	"github.com/jwebster45206/story-rooms/internal/services"
	"github.com/jwebster45206/story-rooms/internal/services/events"
	"github.com/jwebster45206/story-rooms/internal/storage"
	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Rooms API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"content_path", cfg.ContentPath,
		"broadcast_enabled", cfg.BroadcastEnabled)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	catalog, err := storage.NewContentStore(cfg.ContentPath, log).Load(loadCtx)
	loadCancel()
	if err != nil {
		log.Error("Failed to load content", "error", err)
		os.Exit(1)
	}

	opts := []room.Option{room.WithPublishTimeout(cfg.PublishTimeout)}
	if cfg.RandomSeed != 0 {
		log.Info("Using fixed random seed", "seed", cfg.RandomSeed)
		opts = append(opts, room.WithSeed(cfg.RandomSeed))
	}

	var (
		redisService *services.RedisService
		redisClient  *redis.Client
		pinger       services.Pinger
	)
	if cfg.BroadcastEnabled {
		redisService = services.NewRedisService(cfg.RedisURL, log)
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := redisService.WaitForConnection(waitCtx, 30, 2*time.Second)
		waitCancel()
		if err != nil {
			log.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		redisClient = redisService.GetClient()
		pinger = redisService
		opts = append(opts, room.WithNotifier(events.NewBroadcaster(redisClient, log)))
	} else {
		log.Warn("Broadcasting disabled; event streams will return 503")
	}

	engine := room.NewEngine(room.NewRegistry(), catalog, log, opts...)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(pinger, func() int { return len(engine.RoomIDs()) }, log)
	mux.Handle("/health", healthHandler)

	roomsHandler := handlers.NewRoomsHandler(engine, log)
	mux.Handle("/v1/rooms", roomsHandler)
	mux.Handle("/v1/rooms/", roomsHandler)

	mux.Handle("/v1/content", handlers.NewContentHandler(catalog, log))
	mux.Handle("/v1/events/rooms/", handlers.NewEventsHandler(redisClient, log))
	mux.Handle("/v1/ws/rooms/", handlers.NewWSHandler(redisClient, log))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	handler := middleware.Logger(limiter.Middleware(mux))

	// Event streams never go idle; cancelling their base context on shutdown
	// lets Shutdown finish.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return streamCtx },
	}
	server.RegisterOnShutdown(cancelStreams)

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if redisService != nil {
		if err := redisService.Close(); err != nil {
			log.Error("Error closing redis connection", "error", err)
		}
	}

	log.Info("Server exited")
}
