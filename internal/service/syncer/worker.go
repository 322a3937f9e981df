package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/heartmarshall/myquran/internal/store"
)

// Worker drains the outbox in the background: it runs SyncAll a debounce
// interval after the last local write, and on demand via Trigger.
type Worker struct {
	log      *slog.Logger
	engine   *Engine
	hub      *store.Hub
	debounce time.Duration
	trigger  chan struct{}
}

// NewWorker creates a worker for engine fed by hub notifications.
func NewWorker(logger *slog.Logger, engine *Engine, hub *store.Hub, debounce time.Duration) *Worker {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Worker{
		log:      logger.With("service", "sync_worker"),
		engine:   engine,
		hub:      hub,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a sync pass as soon as possible. It never blocks.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	changes, cancel := w.hub.Subscribe(w.engine.TableNames()...)
	defer cancel()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.log.InfoContext(ctx, "sync worker started", slog.Duration("debounce", w.debounce))
	for {
		select {
		case <-ctx.Done():
			w.log.InfoContext(ctx, "sync worker stopped")
			return nil

		case _, ok := <-changes:
			if !ok {
				return nil
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.syncIfPending(ctx)

		case <-w.trigger:
			timer.Stop()
			w.engine.SyncAll(ctx)
		}
	}
}

// syncIfPending skips passes woken only by the engine's own writes.
func (w *Worker) syncIfPending(ctx context.Context) {
	n, err := w.engine.Pending(ctx)
	if err != nil {
		w.log.ErrorContext(ctx, "count pending records", slog.String("error", err.Error()))
		return
	}
	if n == 0 {
		return
	}
	w.engine.SyncAll(ctx)
}
