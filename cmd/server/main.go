package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"schoolschedule/internal/auth"
	"schoolschedule/internal/config"
	"schoolschedule/internal/db"
	internalhttp "schoolschedule/internal/http"
	"schoolschedule/internal/jobs"
	"schoolschedule/internal/logging"
	"schoolschedule/internal/service"
	"schoolschedule/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connection failed")
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("schema migration failed")
		}
		logger.Info().Msg("schema migrated")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("redis ping failed")
	}
	cancel()
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}()

	store := db.NewStore(pool)
	blobs := storage.NewFS(cfg.StorageDir)
	documents := service.NewDocumentService(store.Queries, blobs, logger)
	sessions := auth.NewManager(auth.NewRedisSessionStore(redisClient), cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)

	server := internalhttp.NewServer(cfg, logger, sessions, internalhttp.Services{
		Students:      service.NewStudentService(store.Queries, logger),
		Parents:       service.NewParentService(store.Queries, logger),
		Teachers:      service.NewTeacherService(store.Queries, blobs, logger),
		StudentGroups: service.NewStudentGroupService(store, logger),
		Lessons:       service.NewLessonService(store, logger),
		Attendances:   service.NewAttendanceService(store.Queries, logger),
		Documents:     documents,
		Users:         service.NewUserService(store.Queries, logger),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	jobs.StartDocumentSweepJob(ctx, cfg, documents, logger)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
