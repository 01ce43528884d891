package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"github.com/mbelkin/authfront/internal/buildinfo"
	"github.com/mbelkin/authfront/internal/devserver"
	"github.com/mbelkin/authfront/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	// A missing .env is fine; the environment and defaults still apply.
	_ = godotenv.Load()

	cfg, err := devserver.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	srv := devserver.NewServer(cfg, logger)
	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           handlers.CombinedLoggingHandler(os.Stdout, handlers.RecoveryHandler()(srv.Handler())),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info(ctx, "dev server listening", "address", cfg.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown failed", "error", err)
	}
	logger.Info(context.Background(), "dev server stopped")
}
