package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/daveharmswebdev/property-manager-sub002/internal/cache"
	"github.com/daveharmswebdev/property-manager-sub002/internal/config"
	"github.com/daveharmswebdev/property-manager-sub002/internal/database"
	"github.com/daveharmswebdev/property-manager-sub002/internal/handlers"
	"github.com/daveharmswebdev/property-manager-sub002/internal/jobs"
	"github.com/daveharmswebdev/property-manager-sub002/internal/log"
	"github.com/daveharmswebdev/property-manager-sub002/internal/queue"
	"github.com/daveharmswebdev/property-manager-sub002/internal/repository"
	"github.com/daveharmswebdev/property-manager-sub002/internal/server"
	"github.com/daveharmswebdev/property-manager-sub002/internal/service"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	gateway, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := gateway.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("ensure bucket failed")
	}

	producer := queue.NewProducer(redisClient, cfg.Queue.Stream)
	photos := service.NewPhotoService(
		repository.NewPhotoRepository(dbPool),
		repository.NewOwnerRepository(dbPool),
		gateway,
		cache.NewLocker(redisClient, cfg.Locks),
		producer,
		cfg.Photos,
		logger,
	)

	handlerSet := handlers.NewHandlerSet(logger, cfg, dbPool, redisClient, photos)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(producer, cfg.Cleanup.Schedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
