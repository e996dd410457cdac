package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/libops/articlebot/internal/config"
	"github.com/libops/articlebot/internal/logging"
	"github.com/libops/articlebot/internal/server"
)

func main() {
	// Set up context-aware logging as default
	setupLogging()

	if err := run(); err != nil {
		slog.Error("Application error", "err", err)
		os.Exit(1)
	}
}

func setupLogging() {
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: getLogLevel(),
	})

	// Wrap it with the context handler to include per-message IDs
	slog.SetDefault(slog.New(logging.NewContextHandler(textHandler)))
}

func getLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run() error {
	loader := config.NewVaultLoader()
	cfg, err := config.LoadFrom(loader)
	if err != nil {
		return err
	}

	reloader, err := config.NewReloader(cfg, loader)
	if err != nil {
		return err
	}

	srv, err := server.New(context.Background(), reloader)
	if err != nil {
		return err
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			slog.Error("Error during shutdown", "err", shutdownErr)
		}
		return err
	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)

		// Leave time for in-flight publishes to be acknowledged
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(ctx)
	}
}
