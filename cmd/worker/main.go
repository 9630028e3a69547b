package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/daveharmswebdev/property-manager-sub002/internal/cache"
	"github.com/daveharmswebdev/property-manager-sub002/internal/config"
	"github.com/daveharmswebdev/property-manager-sub002/internal/database"
	"github.com/daveharmswebdev/property-manager-sub002/internal/log"
	"github.com/daveharmswebdev/property-manager-sub002/internal/queue"
	"github.com/daveharmswebdev/property-manager-sub002/internal/repository"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
	"github.com/daveharmswebdev/property-manager-sub002/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	gateway, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	processor := tasks.NewProcessor(
		gateway,
		repository.NewPhotoRepository(dbPool),
		tasks.Options{
			ThumbnailMaxDimension: cfg.Photos.ThumbnailMaxDimension,
			OrphanGrace:           cfg.Cleanup.OrphanGrace,
		},
		logger,
	)
	consumer := queue.NewConsumer(client, cfg.Queue, logger, processor)

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
