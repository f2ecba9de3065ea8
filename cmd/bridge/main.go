package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/attendance-core/internal/config"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/bridge"
)

// The bridge reads badge UIDs line by line on stdin and writes one display
// token per accepted scan on stdout. Logs go to stderr so they never mix with
// tokens.
func main() {
	cfg, err := config.LoadBridge()
	if err != nil {
		slog.Error("Error loading config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	session, err := bridge.NewSession(bridge.SessionConfig{
		Endpoints:      cfg.Endpoints,
		DeviceKey:      cfg.DeviceKey,
		ReaderID:       cfg.ReaderID,
		MaxAttempts:    cfg.MaxAttempts,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		slog.Error("Error creating bridge session", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bridge started", "reader_id", cfg.ReaderID, "endpoint", session.Endpoint())

	b := bridge.New(session, bridge.NewDebouncer(cfg.Debounce))
	if err := b.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Bridge stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Bridge stopped")
}
