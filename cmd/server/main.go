package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/recipeforge/admission/internal/config"
	"github.com/recipeforge/admission/internal/repository/postgres"
	"github.com/recipeforge/admission/internal/router"
	"github.com/recipeforge/admission/internal/service/admission"
	"github.com/recipeforge/admission/internal/service/ai"
	"github.com/recipeforge/admission/internal/service/auth"
	"github.com/recipeforge/admission/internal/service/billing"
	"github.com/recipeforge/admission/internal/service/cleanup"
	"github.com/recipeforge/admission/internal/service/costgate"
	"github.com/recipeforge/admission/internal/service/idempotence"
	"github.com/recipeforge/admission/internal/service/image"
	"github.com/recipeforge/admission/internal/service/persistence"
	"github.com/recipeforge/admission/internal/service/pipeline"
	"github.com/recipeforge/admission/internal/service/platform"
	"github.com/recipeforge/admission/internal/service/quota"
	"github.com/recipeforge/admission/internal/service/ratelimit"
	"github.com/recipeforge/admission/internal/service/revenuecat"
	"github.com/recipeforge/admission/internal/service/singleflight"
	"github.com/recipeforge/admission/internal/service/speech"
	"github.com/recipeforge/admission/internal/service/thumbnail"
)

func main() {
	cfg := config.Load()

	// Initialise Sentry as early as possible so panics during startup are
	// captured. When SENTRY_DSN is empty the SDK is a no-op.
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.1,
			EnableTracing:    true,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "sentry.Init failed: %v\n", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}
	w := io.MultiWriter(os.Stdout, fileLogger)
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting admission service", slog.String("port", cfg.Port))

	db, err := connectPostgres(cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to postgres")

	redisClient, err := connectRedis(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to redis")

	// Repositories
	rateLimitRepo := postgres.NewRateLimitRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	recipeRepo := postgres.NewRecipeRepository(db, logger)
	foodItemRepo := postgres.NewFoodItemRepository(db)

	// authenticator
	authenticator := auth.NewAuthenticator(cfg.SupabaseJWTSecret, cfg.SupabaseURL)

	// rate gate and cost gate
	rateGate := ratelimit.NewGate(rateLimitRepo, logger)
	costGate := costgate.NewGate(rateLimitRepo, redisClient, costgate.Limits{
		DailyGlobal:  cfg.DailyGlobalLimit,
		HourlyGlobal: cfg.HourlyGlobalLimit,
		DailyUser:    cfg.DailyUserLimit,
	}, logger)

	// single-flight lock, idempotence resolver, quota ledger
	singleFlight := singleflight.NewRegistry()
	resolver := idempotence.NewResolver(recipeRepo)
	ledger := quota.NewLedger(profileRepo, logger)

	// platform registry
	registry := platform.NewDefaultRegistry(cfg.YtDlpPath, cfg.InstagramCookies)

	// Speech-to-text, LLM, and image generation clients feeding the pipeline
	speechClient := speech.NewClient(cfg.OpenAIAPIKey)

	aiCtx := context.Background()
	aiClient, err := ai.NewClient(aiCtx, cfg.GeminiAPIKey, cfg.AIModel)
	if err != nil {
		logger.Error("failed to initialize AI client", slog.Any("error", err))
		os.Exit(1)
	}
	defer aiClient.Close()

	imageClient := image.NewClient(cfg.OpenAIAPIKey, cfg.ImageModel)

	orchestrator := pipeline.NewOrchestrator(registry, speechClient, aiClient, imageClient, os.TempDir(), logger)

	// persistence layer
	thumbnailStore := thumbnail.NewStore(cfg.StorageEndpoint, cfg.StorageBucket, cfg.StorageAccessKey, cfg.StorageSecretKey)
	store := persistence.NewLayer(recipeRepo, foodItemRepo, thumbnailStore, logger)

	// admission controller
	controller := admission.NewController(rateGate, costGate, singleFlight, resolver, ledger, orchestrator, store, logger)

	r := router.New(cfg, logger, db, redisClient, authenticator, controller)

	// Background sweeps: the rate gate's in-process sticky blocks, and
	// the durable rate-limit/cost-gate counter retention.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go runRateGateSweep(sweepCtx, rateGate, logger)

	cleanupService := cleanup.NewService(rateLimitRepo, logger, cleanup.Config{
		TempDir:         os.TempDir(),
		Retention:       cfg.RateLimitRetention,
		CleanupInterval: cfg.RateLimitSweepInterval,
	})
	go cleanupService.Start(sweepCtx)

	// Premium status sync: optional, since not every deployment wires a
	// billing vendor behind the Quota Ledger's is_premium flag.
	if cfg.RevenueCatAPIKey != "" {
		rcClient := revenuecat.NewClient(cfg.RevenueCatAPIKey, cfg.RevenueCatEntitlement)
		billingSync := billing.NewSyncer(profileRepo, rcClient, cfg.BillingSyncInterval, logger)
		go billingSync.Start(sweepCtx)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, syscall.SIGINT, syscall.SIGTERM)
	<-quitCh

	logger.Info("shutting down server...")
	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}

// runRateGateSweep periodically clears the rate gate's expired in-process
// sticky blocks so the map in internal/service/ratelimit doesn't grow
// without bound across long-lived process uptime.
func runRateGateSweep(ctx context.Context, gate *ratelimit.Gate, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gate.Sweep()
		case <-ctx.Done():
			logger.Info("rate gate sweep stopping")
			return
		}
	}
}

func connectPostgres(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func connectRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
