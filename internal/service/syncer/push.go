package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
)

// push drains the outbox of every table in order. A failed record stays
// dirty and the batch continues; an authorization failure aborts it.
func (e *Engine) push(ctx context.Context, res *domain.SyncResult) error {
	for _, t := range e.tables {
		entries, err := t.Outbox(ctx)
		if err != nil {
			return fmt.Errorf("outbox %s: %w", t.Kind(), err)
		}

		for _, entry := range entries {
			err := e.pushOne(ctx, t, entry, res)
			if err == nil {
				continue
			}
			if errors.Is(err, domain.ErrUnauthorized) || ctx.Err() != nil {
				return fmt.Errorf("push %s %s: %w", t.Kind(), entry.Meta.ClientID, err)
			}
			res.Failures = append(res.Failures, domain.SyncFailure{Kind: t.Kind(), ClientID: entry.Meta.ClientID, Err: err})
			e.log.WarnContext(ctx, "push failed",
				slog.String("kind", t.Kind().String()),
				slog.String("client_id", entry.Meta.ClientID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (e *Engine) pushOne(ctx context.Context, t Table, entry domain.OutboxEntry, res *domain.SyncResult) error {
	meta := entry.Meta
	kind := t.Kind()

	if meta.IsDeleted {
		if meta.RemoteID != "" {
			err := e.call(ctx, func(ctx context.Context) error {
				return e.remote.SoftDelete(ctx, kind, meta.RemoteID, meta.Version)
			})
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			res.Pushed++
		}
		purged, err := e.purge(ctx, t, meta)
		if err != nil {
			return err
		}
		if purged {
			res.Purged++
		}
		return nil
	}

	rec := domain.RemoteRecord{
		Kind:       kind,
		RemoteID:   meta.RemoteID,
		ClientID:   meta.ClientID,
		NaturalKey: identity(entry),
		Version:    meta.Version,
		UpdatedAt:  meta.UpdatedAt,
		Payload:    entry.Payload,
	}

	// A create whose acknowledgement was lost, or the same record created
	// on another device, already exists remotely under the natural key.
	if rec.RemoteID == "" {
		var existing domain.RemoteRecord
		var found bool
		err := e.call(ctx, func(ctx context.Context) (err error) {
			existing, found, err = e.remote.FindByNaturalKey(ctx, kind, rec.NaturalKey)
			return err
		})
		if err != nil {
			return err
		}
		if found {
			rec.RemoteID = existing.RemoteID
		}
	}

	var stored domain.RemoteRecord
	err := e.call(ctx, func(ctx context.Context) (err error) {
		if rec.RemoteID != "" {
			stored, err = e.remote.Update(ctx, rec)
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			rec.RemoteID = ""
		}
		stored, err = e.remote.Create(ctx, rec)
		return err
	})
	if err != nil {
		return err
	}

	if len(stored.Payload) == 0 {
		stored.Payload = entry.Payload
	}
	tomb, removed, err := e.acknowledge(ctx, t, meta, stored)
	if err != nil {
		return err
	}
	res.Pushed++
	if !removed {
		return nil
	}

	// Removed locally while the push was in flight: the remote copy must
	// not outlive it, or the next pull would bring it back.
	e.log.InfoContext(ctx, "record removed during push, deleting remote copy",
		slog.String("kind", kind.String()),
		slog.String("client_id", meta.ClientID),
		slog.String("remote_id", stored.RemoteID),
	)
	return e.pushOne(ctx, t, domain.OutboxEntry{Kind: kind, Meta: tomb}, res)
}

// acknowledge stores the remote id of a pushed record in one transaction.
// When the record no longer exists locally it leaves a tombstone instead and
// reports removed=true.
func (e *Engine) acknowledge(ctx context.Context, t Table, meta domain.SyncMeta, stored domain.RemoteRecord) (tomb domain.SyncMeta, removed bool, err error) {
	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, found, err := t.LocalMeta(ctx, domain.RemoteRecord{ClientID: meta.ClientID})
		if err != nil {
			return err
		}
		if !found {
			stored.Version = max(stored.Version, meta.Version)
			tomb, err = t.Tombstone(ctx, meta.ClientID, stored, e.now())
			removed = true
			return err
		}
		_, err = t.MarkSynced(ctx, meta.ClientID, stored.RemoteID, meta.Version)
		return err
	})
	if err != nil {
		return domain.SyncMeta{}, false, fmt.Errorf("mark synced: %w", err)
	}
	return tomb, removed, nil
}

// purge removes an acknowledged tombstone unless the record was revived
// after the outbox was read.
func (e *Engine) purge(ctx context.Context, t Table, meta domain.SyncMeta) (bool, error) {
	var purged bool
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		cleared, err := t.MarkSynced(ctx, meta.ClientID, meta.RemoteID, meta.Version)
		if err != nil || !cleared {
			return err
		}
		if err := t.Delete(ctx, meta.ClientID); err != nil {
			return err
		}
		purged = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("purge tombstone: %w", err)
	}
	return purged, nil
}

// call runs fn under the per-call timeout.
func (e *Engine) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("remote call timed out after %s: %w", e.cfg.CallTimeout, err)
	}
	return err
}

// identity is the cross-device key of a record: its natural key, or the
// client id for records without one.
func identity(entry domain.OutboxEntry) string {
	if entry.NaturalKey != "" {
		return entry.NaturalKey
	}
	return entry.Meta.ClientID
}
