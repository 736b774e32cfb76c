package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/efreitasn/seatswap/internal/config"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/handler"
	"github.com/efreitasn/seatswap/internal/ledger"
	"github.com/efreitasn/seatswap/internal/service"
	"github.com/efreitasn/seatswap/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Optional .env file; absence is not an error.
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level, optionally teeing into a
	// rotated log file.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	var logOut io.Writer = os.Stdout
	if cfg.LogFile != "" {
		logOut = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ledger, book, matcher.
	registry := ledger.NewRegistry()
	book := engine.NewOrderBook()
	matcher := engine.NewMatcher(book, registry)

	// Stores.
	swapStore := store.NewSwapStore()
	webhookStore := store.NewWebhookStore()

	var historyStore *store.HistoryStore
	if cfg.HistoryDBPath != "" {
		historyStore, err = store.NewHistoryStore(cfg.HistoryDBPath)
		if err != nil {
			logger.Error("failed to open swap history store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("swap history archive enabled", slog.String("path", cfg.HistoryDBPath))
	}

	var publisher *service.QueuePublisher
	if cfg.AMQPURL != "" {
		publisher = service.NewQueuePublisher(cfg.AMQPURL)
		logger.Info("queue publishing enabled")
	}

	// Services.
	webhookSvc := service.NewWebhookService(webhookStore, cfg.WebhookTimeout)
	seatSvc := service.NewSeatService(registry, book, webhookSvc)
	orderSvc := service.NewOrderService(book, registry, webhookSvc)
	swapSvc := service.NewSwapService(matcher, swapStore, historyStore, webhookSvc, publisher)

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set; administrative operations are disabled")
	}

	// Router.
	router := handler.NewRouter(seatSvc, orderSvc, swapSvc, webhookSvc, cfg.AdminToken, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
