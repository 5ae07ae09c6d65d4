package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/alerting"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/auth"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/config"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/engine"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/notify"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/server"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage/sqlite"
	"github.com/OsatohanmwenT/expense-tracker-api/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	registry := notify.NewRegistry()
	dispatcher := notify.NewDispatcher(registry)
	eng := engine.New(store, alerting.NewEvaluator(cfg.WarnRatio), dispatcher)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	srv := server.New(store, eng, authenticator, jwtManager, registry)
	handler := middleware.Logging(middleware.CORS(srv.Routes()))
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go eng.RunRollover(ctx, cfg.RolloverInterval)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: h2cHandler,
	}

	go func() {
		slog.Info("Server starting", "address", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
