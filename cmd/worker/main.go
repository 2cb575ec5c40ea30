package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumate/internal/config"
	"resumate/internal/database"
	"resumate/internal/metrics"
	"resumate/internal/pdf"
	"resumate/internal/storage"
	"resumate/internal/tasks"
	"resumate/internal/worker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(config.MustLoad(), logger); err != nil {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.InitDatabase(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	store, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	renderer, err := pdf.NewRenderer(cfg.PDF)
	if err != nil {
		return fmt.Errorf("init pdf renderer: %w", err)
	}

	publisher := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer publisher.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := publisher.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	taskLog := logger.With(slog.String("component", "asynq"))
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency:     cfg.Worker.Concurrency,
		ShutdownTimeout: cfg.PDF.Timeout + 10*time.Second,
		Logger:          asynqLogger{taskLog},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			taskLog.WarnContext(ctx, "task attempt failed",
				slog.String("task_type", task.Type()),
				slog.Int("retried", retried),
				slog.Any("error", err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeResumeArchive, worker.NewArchiveTaskHandler(db, renderer, store, publisher, logger))

	logger.Info("worker starting",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.String("bucket", cfg.MinIO.Bucket),
		slog.String("pdf_engine", cfg.PDF.Engine),
	)
	return server.Run(mux)
}
