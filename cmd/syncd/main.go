// Command syncd serves the sync API: a per-user store of versioned records
// that myquran devices push to and pull from.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunServer(ctx, *cfg, logger); err != nil {
		logger.Error("sync server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
