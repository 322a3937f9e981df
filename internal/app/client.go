package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/myquran/internal/adapter/remote/httpclient"
	"github.com/heartmarshall/myquran/internal/adapter/sqlite"
	"github.com/heartmarshall/myquran/internal/auth"
	"github.com/heartmarshall/myquran/internal/config"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/scheduler"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/service/hifz"
	"github.com/heartmarshall/myquran/internal/service/library"
	"github.com/heartmarshall/myquran/internal/service/prayer"
	"github.com/heartmarshall/myquran/internal/service/reading"
	"github.com/heartmarshall/myquran/internal/service/settings"
	"github.com/heartmarshall/myquran/internal/service/syncer"
	"github.com/heartmarshall/myquran/internal/store"
)

// Client is the on-device application: the local store, the services on top
// of it and, when a sync server is configured, the sync engine.
type Client struct {
	Log    *slog.Logger
	Clock  *calendar.Clock
	Tables *sqlite.Tables

	Library  *library.Service
	Reading  *reading.Service
	Prayer   *prayer.Service
	Settings *settings.Service
	Hifz     *hifz.Service
	Session  *auth.Session

	// Engine and Worker are nil when the device is offline.
	Engine    *syncer.Engine
	Worker    *syncer.Worker
	Scheduler *scheduler.Scheduler

	synced []syncer.Table
	db     *sql.DB
}

// OpenClient opens the local store and wires every client service.
// The caller must Close the returned client.
func OpenClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	loc, err := cfg.Local.Location()
	if err != nil {
		return nil, err
	}
	path, err := cfg.Local.DBPath()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	hub := store.NewHub()
	tables := sqlite.NewTables(db, hub)
	tx := sqlite.NewTxManager(db, hub)
	clock := calendar.New(loc, time.Now)

	session := auth.NewSession(tables.Meta)
	if err := session.Load(ctx, cfg.Sync.Token); err != nil {
		db.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	c := &Client{
		Log:      logger,
		Clock:    clock,
		Tables:   tables,
		Library:  library.NewService(logger, clock, tables.Bookmarks, tables.Collections, tx, hub),
		Reading:  reading.NewService(logger, clock, tables.ReadingProgress, tables.ReadingHistory, tx, hub),
		Prayer:   prayer.NewService(logger, clock, tables.PrayerLogs, tx),
		Settings: settings.NewService(logger, clock, tables.Settings, tx),
		Hifz:     hifz.NewService(logger, clock, tables.Hifz, tx, cfg.SRS.Domain()),
		Session:  session,
		synced: []syncer.Table{
			tables.Collections,
			tables.Bookmarks,
			tables.ReadingProgress,
			tables.ReadingHistory,
			tables.PrayerLogs,
			tables.Settings,
			tables.Hifz,
		},
		db: db,
	}

	schedCfg := scheduler.Config{OverdueSpec: cfg.Sync.OverdueSchedule}
	if cfg.Sync.URL != "" {
		remote := httpclient.New(cfg.Sync.URL, session, logger)
		c.Engine = syncer.NewEngine(logger, remote, session, c.synced, tables.Meta, tx, syncer.Config{
			CallTimeout: cfg.Sync.CallTimeout,
			SyncTimeout: cfg.Sync.Timeout,
		})
		c.Worker = syncer.NewWorker(logger, c.Engine, hub, cfg.Sync.Debounce)
		schedCfg.SyncSpec = cfg.Sync.Schedule
		c.Scheduler = scheduler.New(logger, c.Engine, c.Hifz, schedCfg)
	} else {
		c.Scheduler = scheduler.New(logger, nil, c.Hifz, schedCfg)
	}

	logger.InfoContext(ctx, "local store opened",
		slog.String("path", path),
		slog.String("timezone", loc.String()),
		slog.Bool("sync_enabled", c.Engine != nil),
		slog.String("auth_state", string(session.State())),
	)

	return c, nil
}

// Online reports whether a sync server is configured.
func (c *Client) Online() bool { return c.Engine != nil }

// Pending counts local changes not yet pushed, per entity kind. It works
// offline too.
func (c *Client) Pending(ctx context.Context) (map[domain.EntityKind]int, error) {
	out := make(map[domain.EntityKind]int, len(c.synced))
	for _, t := range c.synced {
		entries, err := t.Outbox(ctx)
		if err != nil {
			return nil, fmt.Errorf("outbox %s: %w", t.Kind(), err)
		}
		out[t.Kind()] = len(entries)
	}
	return out, nil
}

// LastSyncAt returns the start time of the last successful pull, or the zero
// time if the device never synced.
func (c *Client) LastSyncAt(ctx context.Context) (time.Time, error) {
	return c.Tables.Meta.GetTime(ctx, syncer.LastSyncKey)
}

// RunDaemon runs the scheduler and the sync worker until ctx is done.
// Missed jobs run once right away.
func (c *Client) RunDaemon(ctx context.Context) error {
	if err := c.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer c.Scheduler.Stop()

	c.Scheduler.Resume(ctx)

	if c.Worker == nil {
		c.Log.InfoContext(ctx, "sync disabled, running offline jobs only")
		<-ctx.Done()
		return nil
	}

	return c.Worker.Run(ctx)
}

// Close releases the local store.
func (c *Client) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	return c.db.Close()
}
