package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/heartmarshall/myquran/internal/domain"
)

var _ Remote = &RemoteMock{}

// RemoteMock is a mock implementation of Remote.
type RemoteMock struct {
	CreateFunc           func(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error)
	UpdateFunc           func(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error)
	SoftDeleteFunc       func(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error
	FindByNaturalKeyFunc func(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error)
	ListUpdatedSinceFunc func(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error)

	calls struct {
		Create []struct {
			Ctx context.Context
			Rec domain.RemoteRecord
		}
		Update []struct {
			Ctx context.Context
			Rec domain.RemoteRecord
		}
		SoftDelete []struct {
			Ctx      context.Context
			Kind     domain.EntityKind
			RemoteID string
			Version  int64
		}
		FindByNaturalKey []struct {
			Ctx        context.Context
			Kind       domain.EntityKind
			NaturalKey string
		}
		ListUpdatedSince []struct {
			Ctx   context.Context
			Kind  domain.EntityKind
			Since time.Time
		}
	}
	lockCreate           sync.RWMutex
	lockUpdate           sync.RWMutex
	lockSoftDelete       sync.RWMutex
	lockFindByNaturalKey sync.RWMutex
	lockListUpdatedSince sync.RWMutex
}

func (mock *RemoteMock) Create(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	if mock.CreateFunc == nil {
		panic("RemoteMock.CreateFunc: method is nil but Remote.Create was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Rec domain.RemoteRecord
	}{Ctx: ctx, Rec: rec}
	mock.lockCreate.Lock()
	mock.calls.Create = append(mock.calls.Create, callInfo)
	mock.lockCreate.Unlock()
	return mock.CreateFunc(ctx, rec)
}

func (mock *RemoteMock) CreateCalls() []struct {
	Ctx context.Context
	Rec domain.RemoteRecord
} {
	mock.lockCreate.RLock()
	calls := mock.calls.Create
	mock.lockCreate.RUnlock()
	return calls
}

func (mock *RemoteMock) Update(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	if mock.UpdateFunc == nil {
		panic("RemoteMock.UpdateFunc: method is nil but Remote.Update was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Rec domain.RemoteRecord
	}{Ctx: ctx, Rec: rec}
	mock.lockUpdate.Lock()
	mock.calls.Update = append(mock.calls.Update, callInfo)
	mock.lockUpdate.Unlock()
	return mock.UpdateFunc(ctx, rec)
}

func (mock *RemoteMock) UpdateCalls() []struct {
	Ctx context.Context
	Rec domain.RemoteRecord
} {
	mock.lockUpdate.RLock()
	calls := mock.calls.Update
	mock.lockUpdate.RUnlock()
	return calls
}

func (mock *RemoteMock) SoftDelete(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error {
	if mock.SoftDeleteFunc == nil {
		panic("RemoteMock.SoftDeleteFunc: method is nil but Remote.SoftDelete was just called")
	}
	callInfo := struct {
		Ctx      context.Context
		Kind     domain.EntityKind
		RemoteID string
		Version  int64
	}{Ctx: ctx, Kind: kind, RemoteID: remoteID, Version: version}
	mock.lockSoftDelete.Lock()
	mock.calls.SoftDelete = append(mock.calls.SoftDelete, callInfo)
	mock.lockSoftDelete.Unlock()
	return mock.SoftDeleteFunc(ctx, kind, remoteID, version)
}

func (mock *RemoteMock) SoftDeleteCalls() []struct {
	Ctx      context.Context
	Kind     domain.EntityKind
	RemoteID string
	Version  int64
} {
	mock.lockSoftDelete.RLock()
	calls := mock.calls.SoftDelete
	mock.lockSoftDelete.RUnlock()
	return calls
}

func (mock *RemoteMock) FindByNaturalKey(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error) {
	if mock.FindByNaturalKeyFunc == nil {
		panic("RemoteMock.FindByNaturalKeyFunc: method is nil but Remote.FindByNaturalKey was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		Kind       domain.EntityKind
		NaturalKey string
	}{Ctx: ctx, Kind: kind, NaturalKey: naturalKey}
	mock.lockFindByNaturalKey.Lock()
	mock.calls.FindByNaturalKey = append(mock.calls.FindByNaturalKey, callInfo)
	mock.lockFindByNaturalKey.Unlock()
	return mock.FindByNaturalKeyFunc(ctx, kind, naturalKey)
}

func (mock *RemoteMock) FindByNaturalKeyCalls() []struct {
	Ctx        context.Context
	Kind       domain.EntityKind
	NaturalKey string
} {
	mock.lockFindByNaturalKey.RLock()
	calls := mock.calls.FindByNaturalKey
	mock.lockFindByNaturalKey.RUnlock()
	return calls
}

func (mock *RemoteMock) ListUpdatedSince(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error) {
	if mock.ListUpdatedSinceFunc == nil {
		panic("RemoteMock.ListUpdatedSinceFunc: method is nil but Remote.ListUpdatedSince was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		Kind  domain.EntityKind
		Since time.Time
	}{Ctx: ctx, Kind: kind, Since: since}
	mock.lockListUpdatedSince.Lock()
	mock.calls.ListUpdatedSince = append(mock.calls.ListUpdatedSince, callInfo)
	mock.lockListUpdatedSince.Unlock()
	return mock.ListUpdatedSinceFunc(ctx, kind, since)
}

func (mock *RemoteMock) ListUpdatedSinceCalls() []struct {
	Ctx   context.Context
	Kind  domain.EntityKind
	Since time.Time
} {
	mock.lockListUpdatedSince.RLock()
	calls := mock.calls.ListUpdatedSince
	mock.lockListUpdatedSince.RUnlock()
	return calls
}
