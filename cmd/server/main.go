package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MartinRitsberg/ParemInfo/internal/config"
	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/logging"
	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	st, err := store.New(cfg.Store.Manager(), store.WithLogger(slog.Default()))
	if err != nil {
		slog.Error("invalid store configuration", "error", err)
		os.Exit(1)
	}

	// Open once so a broken store fails at startup rather than on the
	// first request.
	ctx := context.Background()
	version, err := st.Version(ctx)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	slog.Info("store ready",
		"name", cfg.Store.Name,
		"collection", st.Collection(),
		"version", version,
	)

	service := core.NewService(st, core.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWaitTime:   cfg.Upload.MaxWaitTime,
		ExportName:    cfg.Export.DefaultName,
		Logger:        slog.Default(),
	})

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		for surface, status := range service.Limits() {
			if status.Active > 0 {
				slog.Info("waiting for operations to complete", "surface", surface, "active", status.Active)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
