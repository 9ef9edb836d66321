package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-feature-pipeline/internal/pipeline/classifier"
	"stock-feature-pipeline/internal/pipeline/config"
	"stock-feature-pipeline/internal/pipeline/delivery/consumer"
	delivery "stock-feature-pipeline/internal/pipeline/delivery/http"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/internal/pipeline/service"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/postgres"
	"stock-feature-pipeline/pkg/redis"
	"stock-feature-pipeline/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the pipeline service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Pipeline Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	newsRepo := repository.NewNewsRepository(db.DB)
	priceRepo := repository.NewPriceRepository(db.DB)
	snapshotRepo := repository.NewSnapshotRepository(db.DB)
	resultRepo := repository.NewPredictionResultRepository(db.DB)
	runLogRepo := repository.NewRunLogRepository(db.DB)
	themeRepo := repository.NewThemeAccuracyRepository(db.DB)
	eventRepo := repository.NewEventRepository(db.DB)
	modelRepo := repository.NewModelRepository(db.DB)
	stocksRepo := repository.NewStocksRepository(db.DB)

	// Initialize classifier
	var newsClassifier classifier.Classifier
	switch cfg.Classifier.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Gemini.APIKey,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		newsClassifier, err = classifier.NewGeminiClassifier(cfg, appLogger, genAiClient)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini classifier", zap.Error(err))
		}
	default:
		appLogger.Fatal("Invalid classifier provider specified in config", zap.String("provider", cfg.Classifier.Provider))
	}

	var telegramNotifier telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		telegramNotifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
	}

	// Initialize services
	scorer := service.NewScorer(service.ScoreWeights{
		Recency:    cfg.Scoring.RecencyWeight,
		Frequency:  cfg.Scoring.FrequencyWeight,
		Sentiment:  cfg.Scoring.SentimentWeight,
		Disclosure: cfg.Scoring.DisclosureWeight,
	}, cfg.Scoring.RecencyHalfLife, cfg.Scoring.FrequencyMax)
	crossTheme := service.NewCrossThemeService(newsRepo)
	indicatorCache := service.NewMarketIndicatorCache(cfg.Pipeline.IndicatorCacheTTL)
	builder := service.NewSnapshotBuilder(priceRepo, newsRepo, snapshotRepo, stocksRepo, crossTheme, indicatorCache, appLogger, service.SnapshotBuilderOptions{
		BatchSize:          cfg.Pipeline.SnapshotBatchSize,
		PriceWarmupDays:    cfg.Pipeline.PriceWarmupDays,
		CrossThemeLookback: cfg.Pipeline.CrossThemeLookback,
	})
	engine := service.NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, runLogRepo, telegramNotifier, appLogger, cfg.Pipeline.DirectionThresholdPct)
	aggregator := service.NewThemeAccuracyAggregator(resultRepo, newsRepo, themeRepo, appLogger, cfg.Pipeline.CrossThemeLookback)
	retriever := service.NewSimilarityRetriever(eventRepo)
	registry := service.NewModelRegistry(modelRepo, appLogger)
	ingestSvc := service.NewNewsIngestService(newsRepo, newsClassifier, scorer, appLogger)
	jobSvc := service.NewPipelineJobService(cfg, redisClient.Client, builder, engine, aggregator, telegramNotifier, appLogger)
	schedulerSvc := service.NewSchedulerService(cfg, redisClient.Client, appLogger)

	// Start the scheduler and the stream consumer
	if err := schedulerSvc.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, jobSvc, appLogger)
	redisConsumer.Start(ctx)

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	similarityDefaults := dto.SimilarityConfig{
		LookbackDays:        cfg.Similarity.LookbackDays,
		SimilarityThreshold: cfg.Similarity.SimilarityThreshold,
		MaxResults:          cfg.Similarity.MaxResults,
		SameMarketOnly:      cfg.Similarity.SameMarketOnly,
	}
	pipelineHandler := delivery.NewPipelineHandler(schedulerSvc, retriever, similarityDefaults, ingestSvc, indicatorCache, snapshotRepo, themeRepo, runLogRepo, appLogger)
	modelHandler := delivery.NewModelHandler(registry, appLogger)

	apiV1 := e.Group("/api/v1")
	pipelineHandler.RegisterRoutes(apiV1.Group("/pipeline"))
	modelHandler.RegisterRoutes(apiV1.Group("/models"))

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down pipeline service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	schedulerSvc.Stop()
	redisConsumer.Stop()

	appLogger.Info("Pipeline service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "pipeline-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-pipeline.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing pipeline-service CLI: %s\n", err)
		os.Exit(1)
	}
}
