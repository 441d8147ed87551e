package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/serenity-health/risk-api/internal/analysis"
	"github.com/serenity-health/risk-api/internal/api/router"
	"github.com/serenity-health/risk-api/internal/chatbot"
	appconfig "github.com/serenity-health/risk-api/internal/config"
	"github.com/serenity-health/risk-api/internal/conversation"
	"github.com/serenity-health/risk-api/internal/model"
	"github.com/serenity-health/risk-api/internal/observability/metrics"
	"github.com/serenity-health/risk-api/internal/risk"
	"github.com/serenity-health/risk-api/pkg/logging"
)

func main() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting serenity risk API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"version", cfg.AppVersion,
	)

	if err := cfg.Validate(); err != nil {
		logger.Critical("invalid configuration", "error", err)
		os.Exit(1)
	}

	adapter := loadModel(cfg, logger)

	db := connectDatabase(cfg.DatabaseURL, logger)
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	// Metrics registry with the standard process and Go collectors.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	analysisMetrics := metrics.NewAnalysisMetrics(registry)

	matcher := risk.NewPatternMatcher(logger)
	engine := risk.NewEngine(logger)

	var predictor analysis.Predictor
	var inspector analysis.ModelInspector
	if adapter != nil {
		predictor = adapter
		inspector = adapter
	}
	svc := analysis.NewService(matcher, predictor, engine, analysisMetrics, logger)

	composer := chatbot.NewComposer(nil, logger)

	store := conversation.NewStore(db)

	var recorder chatbot.Recorder
	var conversationHandler *conversation.Handler
	if store != nil {
		recorder = store
		conversationHandler = conversation.NewHandler(store, logger)
	}

	routerCfg := &router.Config{
		Logger:              logger,
		AnalysisHandler:     analysis.NewHandler(svc, inspector, cfg.MinTextChars, cfg.MaxTextChars, logger),
		ChatHandler:         chatbot.NewHandler(svc, composer, recorder, cfg.MinTextChars, cfg.MaxTextChars, logger),
		ConversationHandler: conversationHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AppName:             cfg.AppName,
		AppVersion:          cfg.AppVersion,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitEnabled:    cfg.RateLimitEnabled,
		RateLimitRequests:   cfg.RateLimitRequests,
		RateLimitWindow:     cfg.RateLimitWindow,
		HealthCheckEnabled:  cfg.HealthCheckEnabled,
		ModelLoaded:         adapter != nil,
		DatabaseConnected:   db != nil,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// loadModel loads the classifier bundle. A missing model is fatal unless the
// deployment explicitly allows a degraded flags-only start.
func loadModel(cfg *appconfig.Config, logger *logging.Logger) *model.Adapter {
	bundle, err := model.LoadBundle(cfg.ModelPath, cfg.LabelsPath)
	if err == nil {
		adapter := model.NewAdapter(bundle, logger)
		info := adapter.Info()
		logger.Info("model loaded",
			"path", cfg.ModelPath,
			"model_type", info.ModelType,
			"classes", info.Classes,
		)
		return adapter
	}

	if errors.Is(err, model.ErrModelNotFound) && cfg.AllowDegradedStart {
		logger.Warn("model artifact missing, starting in degraded flags-only mode", "path", cfg.ModelPath)
		return nil
	}

	logger.Critical("failed to load model", "error", err, "path", cfg.ModelPath)
	os.Exit(1)
	return nil
}

// connectDatabase opens the conversation database. An empty URL disables
// history; a failing connection is logged and disables it as well, so the
// analysis surfaces stay up.
func connectDatabase(databaseURL string, logger *logging.Logger) *sql.DB {
	if databaseURL == "" {
		logger.Info("DATABASE_URL not set, conversation history disabled")
		return nil
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database, conversation history disabled", "error", err)
		_ = db.Close()
		return nil
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("database connected")
	return db
}
