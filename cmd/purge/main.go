// Command purge physically removes sync tombstones older than the configured
// retention period. It is intended to be invoked by an external cron job,
// not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/heartmarshall/myquran/internal/adapter/postgres"
	"github.com/heartmarshall/myquran/internal/adapter/postgres/syncrecord"
	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := syncrecord.New(pool)

	threshold := time.Now().AddDate(0, 0, -cfg.Retention.TombstoneDays)

	purged, err := repo.PurgeDeleted(ctx, threshold)
	if err != nil {
		logger.Error("purge failed",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		os.Exit(1)
	}

	logger.Info("purge completed",
		slog.Int64("purged", purged),
		slog.Time("threshold", threshold),
	)
}
