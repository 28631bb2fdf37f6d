package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/nutrilog/backend/config"
	"github.com/pageza/nutrilog/backend/internal/api"
	"github.com/pageza/nutrilog/backend/internal/database"
	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/middleware"
	"github.com/pageza/nutrilog/backend/internal/server"
	"github.com/pageza/nutrilog/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Configuration loaded", "environment", config.GetEnvironment(), "db_driver", cfg.DBDriver)

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Without Redis submissions are not rate limited
	var redisClient *redis.Client
	if client, err := database.NewRedisClient(cfg, log); err != nil {
		log.Warn("Redis unavailable, rate limiting disabled", "error", err)
	} else {
		redisClient = client
		defer func() { _ = redisClient.Close() }()
	}

	var images service.IImageArchive
	if cfg.S3Bucket != "" {
		s3Config, err := config.NewS3Config(context.Background(), cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Warn("Failed to initialize S3, meal photos will not be archived", "error", err)
		} else {
			images = service.NewImageArchive(s3Config, log)
		}
	}

	analyzer := service.NewAnalyzerClient(cfg.AnalyzerURL, cfg.Pipeline.AnalyzerTimeout, cfg.Pipeline.IncludeUSDA, log)
	foodLogs := service.NewFoodLogService(db)
	aggregator := service.NewDailyAggregator(db, log)
	ingestion := service.NewIngestionService(
		service.NewNormalizer(cfg.Pipeline.MaxImageBytes),
		analyzer,
		foodLogs,
		aggregator,
		images,
		service.IngestionOptions{
			AnalyzerTimeout:    cfg.Pipeline.AnalyzerTimeout,
			PersistenceTimeout: cfg.Pipeline.PersistenceTimeout,
			AnalyzerAttempts:   cfg.Pipeline.AnalyzerAttempts,
			RetryBackoff:       cfg.Pipeline.RetryBackoff,
		},
		log,
	)

	srv := server.New(cfg, api.Dependencies{
		Auth:          service.NewAuthService(cfg.JWTSecret),
		Ingestion:     ingestion,
		FoodLogs:      foodLogs,
		Aggregator:    aggregator,
		Analyzer:      analyzer,
		Images:        images,
		MealPlan:      service.NewMealPlanService(cfg.MealPlanURL, cfg.MealPlanAPIKey, log),
		RateLimiter:   middleware.NewSubmissionRateLimiter(redisClient, cfg.RateLimit.SubmissionsPerHour, log),
		MaxImageBytes: cfg.Pipeline.MaxImageBytes,
		Health: func(c *gin.Context) error {
			return database.HealthCheck(c.Request.Context(), db)
		},
	}, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal("Server error", "error", err)
		}
	case sig := <-quit:
		log.Info("Received signal", "signal", sig.String())
	}

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	log.Info("Server stopped")
}
