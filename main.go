package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"bankcore/internal/config"
	"bankcore/internal/events"
	"bankcore/internal/logger"
	"bankcore/internal/router"
	"bankcore/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger()
	log.Info().Str("storage_driver", cfg.StorageDriver).Msg("Starting up")

	var store storage.Store
	switch cfg.StorageDriver {
	case "mysql":
		database, err := storage.OpenSQL(cfg.DBUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		if err := storage.RunMigrations(database); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		store = storage.NewSQLStore(database, log)

	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := storage.OpenMongo(ctx, cfg.MongoURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to mongodb")
		}
		defer client.Disconnect(context.Background())

		store = storage.NewMongoStore(client, cfg.MongoDB, log)

	case "memory":
		store = storage.NewMemoryStore()
		log.Warn().Msg("Using in-memory storage, data will not survive a restart")

	default:
		log.Fatal().Str("storage_driver", cfg.StorageDriver).Msg("Unknown storage driver")
	}

	var notifier events.Notifier = events.NopNotifier{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		notifier = events.NewRedisNotifier(redisClient, log)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, transfer notifications disabled")
	}

	r := router.SetupRouter(store, notifier, log, cfg.TransferTimeout)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Info().Msg("Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
