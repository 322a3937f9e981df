package syncer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/pkg/ctxutil"
)

// SyncAll pushes every dirty record, then pulls remote changes. A second
// call while a pass for the same user is in flight waits for that pass and
// receives its result.
func (e *Engine) SyncAll(ctx context.Context) domain.SyncResult {
	if e.auth.State() != domain.AuthStateReady {
		return domain.SyncResult{
			Status:    domain.SyncStateError,
			Err:       domain.ErrUnauthorized,
			StartedAt: e.now(),
		}
	}
	userID := e.auth.UserID()

	ch := e.group.DoChan(userID.String(), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SyncTimeout)
		defer cancel()
		return e.run(ctxutil.WithUserID(runCtx, userID)), nil
	})

	select {
	case <-ctx.Done():
		return domain.SyncResult{Status: domain.SyncStateError, Err: ctx.Err(), StartedAt: e.now()}
	case r := <-ch:
		return r.Val.(domain.SyncResult)
	}
}

func (e *Engine) run(ctx context.Context) domain.SyncResult {
	res := domain.SyncResult{StartedAt: e.now()}
	e.setState(domain.SyncStateSyncing)

	err := e.push(ctx, &res)
	if err == nil {
		err = e.pull(ctx, &res)
	}

	res.Duration = e.now().Sub(res.StartedAt)
	switch {
	case err != nil:
		res.Status = domain.SyncStateError
		res.Err = err
	case len(res.Failures) > 0:
		res.Status = domain.SyncStateError
		res.Err = joinFailures(res.Failures)
	default:
		res.Status = domain.SyncStateSuccess
	}
	e.finish(res)

	attrs := []any{
		slog.Int("pushed", res.Pushed),
		slog.Int("pulled", res.Pulled),
		slog.Int("purged", res.Purged),
		slog.Int("conflicts", res.Conflicts),
		slog.Int("failures", len(res.Failures)),
		slog.Duration("duration", res.Duration),
	}
	if res.Err != nil {
		e.log.WarnContext(ctx, "sync finished with errors", append(attrs, slog.String("error", res.Err.Error()))...)
	} else {
		e.log.InfoContext(ctx, "sync finished", attrs...)
	}
	return res
}

func joinFailures(fs []domain.SyncFailure) error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errors.Join(errs...)
}
