package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/promptmotion/manimatic/internal/application/pipeline"
	"github.com/promptmotion/manimatic/internal/application/workers"
	"github.com/promptmotion/manimatic/internal/config"
	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	"github.com/promptmotion/manimatic/internal/renderer"
	redisevents "github.com/promptmotion/manimatic/pkg/adapters/events/redis"
	"github.com/promptmotion/manimatic/pkg/adapters/llm"
	"github.com/promptmotion/manimatic/pkg/adapters/metrics/prometheus"
	redisstorage "github.com/promptmotion/manimatic/pkg/adapters/storage/redis"
	"github.com/promptmotion/manimatic/pkg/adapters/storage/sqlite"
	"github.com/promptmotion/manimatic/pkg/api/grpc"
	"github.com/promptmotion/manimatic/pkg/api/http"
	"github.com/promptmotion/manimatic/pkg/api/websocket"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting manimatic",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Redis backs both live state and the event bus.
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	eventBus := redisevents.NewStreamsEventBus(
		redisClient,
		"manimatic-workers",
		fmt.Sprintf("manimatic-%d", os.Getpid()),
		logger,
	)

	stateStorage := redisstorage.NewStateStorage(redisClient, cfg.Storage.StateTTL, logger)

	catalog, err := sqlite.NewCatalog(cfg.Storage.CatalogPath, logger)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.Error(err))
	}

	// One client per configured LLM backend.
	clients := make(map[domain.Model]ports.LLMClient)
	for _, model := range []domain.Model{domain.ModelClaude, domain.ModelGroq} {
		client, err := llm.NewClient(model, &cfg.LLM, logger)
		if err != nil {
			logger.Warn("LLM backend unavailable",
				zap.String("model", string(model)),
				zap.Error(err))
			continue
		}
		clients[model] = client
	}
	if len(clients) == 0 {
		logger.Fatal("no LLM backend configured")
	}

	metricsCollector := prometheus.NewCollector()

	manimRenderer := renderer.NewInvoker(&renderer.Config{
		Binary:      cfg.Render.Binary,
		Quality:     cfg.Render.Quality,
		MaxAttempts: cfg.Render.MaxAttempts,
		Timeout:     cfg.Render.Timeout,
		OutputsDir:  cfg.Render.OutputsDir,
		Logger:      logger,
	})

	pipelineMgr, err := pipeline.NewManager(pipeline.ManagerOptions{
		EventBus:          eventBus,
		Storage:           stateStorage,
		Catalog:           catalog,
		Metrics:           metricsCollector,
		Renderer:          manimRenderer,
		Clients:           clients,
		Logger:            logger,
		LLM:               &cfg.LLM,
		OutputsDir:        cfg.Render.OutputsDir,
		GenerationTimeout: cfg.Timeouts.GenerationTimeout,
	})
	if err != nil {
		logger.Fatal("failed to create pipeline manager", zap.Error(err))
	}

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		eventBus,
		pipelineMgr,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	httpServer := http.NewServer(&http.Config{
		Port:       cfg.HTTPPort,
		Pipeline:   pipelineMgr,
		OutputsDir: cfg.Render.OutputsDir,
		WebDir:     cfg.WebDir,
		Logger:     logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Pool:   workerPool,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("manimatic started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}
	pipelineMgr.Shutdown()

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}
	if err := catalog.Close(); err != nil {
		logger.Error("catalog close error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("manimatic shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
