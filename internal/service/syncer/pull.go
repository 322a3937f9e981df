package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/myquran/internal/domain"
)

// pull ingests remote changes per kind. A kind's watermark advances only when
// all of its records were applied; the overall last sync time advances only
// when every kind was.
func (e *Engine) pull(ctx context.Context, res *domain.SyncResult) error {
	complete := true
	for _, t := range e.tables {
		kind := t.Kind()
		key := lastSyncKeyPrefix + kind.String()

		since, err := e.marks.GetTime(ctx, key)
		if err != nil {
			return fmt.Errorf("read watermark %s: %w", kind, err)
		}

		var recs []domain.RemoteRecord
		err = e.call(ctx, func(ctx context.Context) (err error) {
			recs, err = e.remote.ListUpdatedSince(ctx, kind, since)
			return err
		})
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) || ctx.Err() != nil {
				return fmt.Errorf("pull %s: %w", kind, err)
			}
			res.Failures = append(res.Failures, domain.SyncFailure{Kind: kind, Err: err})
			complete = false
			continue
		}

		mark, ok := since, true
		for _, rec := range recs {
			if err := e.apply(ctx, t, rec, res); err != nil {
				res.Failures = append(res.Failures, domain.SyncFailure{Kind: kind, ClientID: rec.ClientID, Err: err})
				ok = false
				continue
			}
			if rec.UpdatedAt.After(mark) {
				mark = rec.UpdatedAt
			}
		}
		if !ok {
			complete = false
			continue
		}
		if mark.After(since) {
			if err := e.marks.SetTime(ctx, key, mark); err != nil {
				return fmt.Errorf("save watermark %s: %w", kind, err)
			}
		}
	}

	if complete {
		if err := e.marks.SetTime(ctx, LastSyncKey, res.StartedAt); err != nil {
			return fmt.Errorf("save last sync: %w", err)
		}
	}
	return nil
}

// apply merges one remote record into the local table. Local dirty changes
// win until they are pushed; a clean record is never moved to a lower
// version.
func (e *Engine) apply(ctx context.Context, t Table, rec domain.RemoteRecord, res *domain.SyncResult) error {
	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		local, found, err := t.LocalMeta(ctx, rec)
		if err != nil {
			return err
		}

		switch {
		case !found:
			if rec.Deleted {
				return nil
			}
			clientID := rec.ClientID
			if clientID == "" {
				clientID = uuid.NewString()
			}
			if err := t.ApplyRemote(ctx, clientID, rec); err != nil {
				return err
			}

		case local.IsDirty:
			// Our own earlier push echoed back; the newer local change
			// goes out next time.
			if local.RemoteID == rec.RemoteID && rec.Version < local.Version {
				return nil
			}
			res.Conflicts++
			e.log.InfoContext(ctx, "remote change deferred, local record is dirty",
				slog.String("kind", t.Kind().String()),
				slog.String("client_id", local.ClientID),
				slog.Int64("local_version", local.Version),
				slog.Int64("remote_version", rec.Version),
			)
			return nil

		case rec.Version <= local.Version:
			return nil

		case rec.Deleted:
			if err := t.Delete(ctx, local.ClientID); err != nil {
				return err
			}

		default:
			if err := t.ApplyRemote(ctx, local.ClientID, rec); err != nil {
				return err
			}
		}

		res.Pulled++
		return nil
	})
}
