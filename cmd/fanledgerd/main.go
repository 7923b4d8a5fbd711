package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/daemon"
)

func main() {
	cfg, err := common.LoadConfig(getenv("FANLEDGER_CONFIG", "fanledger.toml"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := common.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := daemon.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Serve(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		app.Close()
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
