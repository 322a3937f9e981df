package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/myquran/internal/adapter/postgres"
	"github.com/heartmarshall/myquran/internal/adapter/postgres/syncrecord"
	"github.com/heartmarshall/myquran/internal/auth"
	"github.com/heartmarshall/myquran/internal/config"
	"github.com/heartmarshall/myquran/internal/transport/middleware"
	"github.com/heartmarshall/myquran/internal/transport/rest"
)

// RunServer runs the sync API until ctx is cancelled, then drains in-flight
// requests within cfg.Server.ShutdownTimeout.
func RunServer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting sync server",
		slog.String("version", BuildVersion()),
		slog.String("addr", cfg.Server.Addr()),
		slog.String("log_level", cfg.Log.Level),
	)

	if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)

	deps := rest.RouterDeps{
		Logger: logger,
		Health: rest.NewHealthHandler(Version, map[string]rest.Pinger{"database": pool}),
		Sync:   rest.NewSyncHandler(syncrecord.New(pool), logger),
		Auth:   middleware.Auth(tokens),
		CORS:   middleware.CORS(cfg.CORS),
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		defer limiter.Stop()
		deps.RateLimit = limiter.Limit()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      rest.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down sync server", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("sync server stopped")
	return nil
}
