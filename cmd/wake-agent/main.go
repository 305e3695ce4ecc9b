package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/behavior"
	"github.com/wakewise/wakewise-platform/internal/insight"
	"github.com/wakewise/wakewise-platform/internal/optimizer"
	"github.com/wakewise/wakewise-platform/internal/prediction"
	"github.com/wakewise/wakewise-platform/internal/provider"
	"github.com/wakewise/wakewise-platform/internal/rules"
	"github.com/wakewise/wakewise-platform/pkg/config"
	"github.com/wakewise/wakewise-platform/pkg/health"
	"github.com/wakewise/wakewise-platform/pkg/mqtt"
	"github.com/wakewise/wakewise-platform/pkg/postgres"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// Context reports older than this are treated as unavailable
const contextMaxAge = 30 * time.Minute

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "wake-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting WakeWise Wake Agent",
		"service_name", cfg.ServiceName,
		"mqtt_broker", cfg.MQTTAddress(),
		"redis_host", cfg.RedisAddress(),
		"alarm_config", cfg.AlarmConfigPath,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Alarm and geofence definitions
	defs := &alarm.Definitions{}
	if cfg.AlarmConfigPath != "" {
		loaded, err := alarm.LoadDefinitions(cfg.AlarmConfigPath)
		if err != nil {
			logger.Error("Failed to load alarm definitions", "error", err)
			os.Exit(1)
		}
		defs = loaded
		logger.Info("Alarm definitions loaded",
			"alarms", len(defs.Alarms), "geofences", len(defs.Geofences))
	} else {
		logger.Warn("No alarm config path set, starting with no alarms")
	}

	// Initialize clients
	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)

	// Wake-event history is optional: without Postgres the agent still
	// learns and evaluates, it just cannot mine long-term patterns
	var history *behavior.History
	pgClient := postgres.NewClient(cfg, logger)
	if err := pgClient.Connect(ctx); err != nil {
		logger.Warn("Postgres unavailable, running without wake-event history", "error", err)
	} else {
		history = behavior.NewHistory(pgClient)
		defer pgClient.Disconnect()
	}

	// Context feed serves weather, calendar, and location from the bus
	feed := provider.NewContextFeed(contextMaxAge, logger)

	// Learning and prediction
	store := behavior.NewStore(redisClient, cfg.LearningRate, cfg.MinDataPoints, logger)
	places := behavior.NewPlaceProvider(store)
	analyzer := prediction.NewAnalyzer(store, feed, feed, feed, places,
		cfg.ProviderTimeout, cfg.FactorConfidenceFloor, logger)
	engine := prediction.NewEngine(analyzer, prediction.NewCache(),
		cfg.MaxAdjustmentMinutes, cfg.ReasoningConfidenceFloor, logger)

	// Pattern mining and insights
	detector := insight.NewDetector(cfg.MinDataPoints, logger)
	registry := insight.NewRegistry(redisClient, cfg.PatternConfidenceThreshold, cfg.MinDataPoints, logger)
	generator := insight.NewGenerator(redisClient, cfg.TopInsightCount, cfg.MaxInsightHistory, logger)

	// Rule evaluation
	ruleEngine := rules.NewEngine(feed, feed, provider.NewSunCalcProvider(), store, redisClient,
		cfg.Latitude, cfg.Longitude,
		cfg.DefaultMaxOptimizationMinutes, cfg.MaxAdjustmentMinutes,
		cfg.ProviderTimeout, logger)

	service := optimizer.NewService(store, history, engine, detector, registry,
		generator, ruleEngine, defs, redisClient, logger)

	agent := optimizer.NewAgent(service, feed, mqttClient, cfg, logger)

	// Start health check server
	healthChecker := health.NewChecker(mqttClient, redisClient, logger)
	httpServer := startHealthServer(cfg.HealthPort, healthChecker, logger)

	// Start agent
	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			agentErr <- err
		}
	}()

	// Wait for shutdown signal or agent error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()
	agent.Stop()
	mqttClient.Disconnect()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Wake agent shutdown complete")
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
