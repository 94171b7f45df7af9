// Package main is the entry point for the Loom OpenAI provider plugin.
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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loomhq/openai-plugin/internal/config"
	"github.com/loomhq/openai-plugin/internal/domain"
	"github.com/loomhq/openai-plugin/internal/handler"
	"github.com/loomhq/openai-plugin/internal/security"
	"github.com/loomhq/openai-plugin/internal/ui"
)

func main() {
	// Load .env if present; real env vars take precedence.
	_ = godotenv.Load()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("starting openai provider plugin",
		slog.String("version", domain.PluginMetadata.Version),
		slog.String("endpoint", cfg.Provider.Endpoint),
	)

	// Runtime provider configuration, seeded with startup defaults. The host
	// fills in the api_key through POST /initialize.
	store := domain.NewConfigStore(domain.ProviderConfig{
		Endpoint: cfg.Provider.Endpoint,
		Timeout:  cfg.Provider.Timeout(),
	})

	pluginHandler := handler.NewPluginHandler(store, handler.WithLogger(logger))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.Use(handler.MetricsMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	// Plugin protocol endpoints
	router.GET("/metadata", pluginHandler.HandleMetadata)
	router.POST("/initialize", pluginHandler.HandleInitialize)
	router.GET("/health", pluginHandler.HandleHealth)
	router.POST("/chat/completions", pluginHandler.HandleChatCompletion)
	router.GET("/models", pluginHandler.HandleModels)
	router.POST("/cleanup", pluginHandler.HandleCleanup)

	// Operational endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))
		ui.PrintBanner(domain.PluginMetadata.Name, domain.PluginMetadata.Version, addr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// setupLogger creates a structured logger wrapped with credential redaction
// and installs it as the process default.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Format == "text" {
		inner = slog.NewTextHandler(os.Stdout, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(security.NewRedactedHandler(inner))
	slog.SetDefault(logger)

	return logger
}
