package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumate/internal/api"
	"resumate/internal/auth"
	"resumate/internal/config"
	"resumate/internal/database"
	"resumate/internal/generation"
	"resumate/internal/jobs"
	"resumate/internal/llm"
	"resumate/internal/pdf"
	"resumate/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("pdf_engine", cfg.PDF.Engine),
	)

	db, err := database.InitDatabase(cfg.Database, logger)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready")

	authService, err := loadAuthService(cfg.Auth)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("ping redis: %v", err)
	}
	cancel()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	renderer, err := pdf.NewRenderer(cfg.PDF)
	if err != nil {
		log.Fatalf("init pdf renderer: %v", err)
	}

	// The provider is built on first use so the API starts without LLM credentials.
	llmClient := llm.NewLazy(func() (llm.Client, error) { return llm.New(cfg.LLM) })
	jobRepo := database.NewJobRepository(db)
	analyzer := jobs.NewService(llmClient, jobRepo, jobs.NewFetcher(&http.Client{Timeout: 20 * time.Second}))
	generator := generation.NewService(llmClient, renderer, database.NewResumeRepository(db))

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router.Group("/api"), api.Deps{
		DB:          db,
		AuthService: authService,
		Google:      auth.NewGoogleProvider(cfg.Google),
		Redis:       redisClient,
		Queue:       asynqClient,
		Store:       storageClient,
		Jobs:        analyzer,
		Generator:   generator,
		Logger:      logger,
		AuthOptions: api.AuthHandlerOptions{
			LoginRateLimitPerHour: cfg.Auth.LoginRateLimitPerHour,
			LoginLockThreshold:    cfg.Auth.LoginLockThreshold,
			LoginLockTTL:          cfg.Auth.LoginLockTTL,
			CookieDomain:          cfg.Auth.CookieDomain,
		},
		WSOrigins: cfg.API.WSOrigins(),
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

func loadAuthService(cfg config.AuthConfig) (*auth.AuthService, error) {
	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return auth.NewAuthService(privatePEM, publicPEM, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}
