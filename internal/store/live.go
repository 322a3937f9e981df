package store

import (
	"context"
	"log/slog"
)

// Watch runs fetch once and again after every write to one of tables,
// delivering each result on the returned channel. Only the latest result is
// kept for a slow reader. The channel closes when ctx is done.
func Watch[T any](ctx context.Context, hub *Hub, log *slog.Logger, fetch func(ctx context.Context) (T, error), tables ...string) <-chan T {
	out := make(chan T, 1)
	changes, cancel := hub.Subscribe(tables...)

	go func() {
		defer close(out)
		defer cancel()

		deliver := func() {
			v, err := fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WarnContext(ctx, "live query failed", slog.Any("tables", tables), slog.String("error", err.Error()))
				}
				return
			}
			select {
			case <-out:
			default:
			}
			out <- v
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return out
}
