package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/eduforge/gradex/internal/anticheat"
	"github.com/eduforge/gradex/internal/api"
	"github.com/eduforge/gradex/internal/config"
	"github.com/eduforge/gradex/internal/configs/env"
	"github.com/eduforge/gradex/internal/evaluator"
	"github.com/eduforge/gradex/internal/geometry"
	"github.com/eduforge/gradex/internal/infra/mongo"
	redisInfra "github.com/eduforge/gradex/internal/infra/redis"
	"github.com/eduforge/gradex/internal/llm"
	"github.com/eduforge/gradex/internal/logger"
	"github.com/eduforge/gradex/internal/metrics"
	"github.com/eduforge/gradex/internal/repository"
	"github.com/eduforge/gradex/internal/stream"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting GradeX server")

	// Initialize Prometheus metrics
	metrics.InitPrometheus()
	log.Info().Msg("Prometheus metrics initialized")

	// Start metrics server in separate goroutine on port 2112
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":2112",
		Handler: metricsMux,
	}
	go func() {
		log.Info().Str("port", "2112").Msg("Metrics server started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Metrics server failed to start")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(ctx)

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	// Initialize repositories
	mongoRepo := repository.NewMongoRepository(mongoClient)
	examsRepo := repository.NewExamsRepository(mongoRepo)
	eventsRepo := repository.NewEventsRepository(mongoRepo)

	// LLM providers and router
	cloudProvider := llm.NewOpenAIProvider(
		"Cloud", cfg.CloudBaseURL, cfg.CloudAPIKey, cfg.CloudModel, cfg.PromptTemplate, cfg.LLMTimeout,
	)
	localProvider := llm.NewOpenAIProvider(
		"Local", cfg.LocalBaseURL, cfg.LocalAPIKey, cfg.LocalModel, cfg.PromptTemplate, cfg.LLMTimeout,
	)
	router := llm.NewRouter(cloudProvider, localProvider, llm.Strategy(cfg.LLMStrategy), cfg.LLMFallbackEnabled)

	// Anti-cheat context builder
	searchClient := anticheat.NewSearchClient(cfg.SearchBaseURL, cfg.SearchAPIKey, cfg.SearchCX, cfg.SearchTimeout)
	contextBuilder := anticheat.New(eventsRepo, searchClient, cfg.CountDanglingAway)

	// Region scoring configuration
	geoConfig := geometry.Config{
		IoUWeight:            cfg.RegionIoUWeight,
		RecallWeight:         cfg.RegionRecallWeight,
		PrecisionWeight:      cfg.RegionPrecisionWeight,
		IoUThreshold:         cfg.RegionIoUThreshold,
		InclusionThreshold:   cfg.RegionInclusionThreshold,
		MinCoverageThreshold: cfg.RegionMinCoverageThreshold,
		LoyaltyFactor:        cfg.RegionLoyaltyFactor,
	}

	service := evaluator.NewService(examsRepo, router, contextBuilder, geoConfig, llm.Strategy(cfg.LLMStrategy))

	// Initialize worker pool
	workerPool := evaluator.NewWorkerPool(ctx)
	defer workerPool.Close()

	// Initialize retry handler
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	// Initialize Redis stream consumer
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		service,
		workerPool,
		retryHandler,
		cfg.StreamRetentionDuration,
	)
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	engine := api.SetupRoutes(cfg, examsRepo, service, redisClient)

	// Start Redis consumer in background
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	go func() {
		defer consumerCancel()
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Msg("Redis consumer started")

	// Start Gin server
	srv := api.StartServer(engine, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down Gin server")
	}

	// Shutdown metrics server gracefully
	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Shutdown(metricsCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
