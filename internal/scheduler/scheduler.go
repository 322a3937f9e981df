// Package scheduler runs the client's periodic jobs: a full sync pass and the
// hifz overdue sweep. Jobs are cron entries rather than long-lived timers, so
// a device that was asleep simply calls Resume when it wakes up.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/heartmarshall/myquran/internal/domain"
)

const (
	JobSync    = "sync"
	JobOverdue = "overdue"
)

type syncer interface {
	SyncAll(ctx context.Context) domain.SyncResult
}

type overdueRefresher interface {
	RefreshOverdue(ctx context.Context) (int, error)
}

// Config holds the cron specs. An empty spec disables that job.
type Config struct {
	SyncSpec    string
	OverdueSpec string
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// Scheduler owns the cron instance and its two jobs.
type Scheduler struct {
	log     *slog.Logger
	sync    syncer
	overdue overdueRefresher
	cfg     Config

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a stopped Scheduler. sync may be nil when the device is offline.
func New(logger *slog.Logger, engine syncer, overdue overdueRefresher, cfg Config) *Scheduler {
	return &Scheduler{
		log:     logger.With("component", "scheduler"),
		sync:    engine,
		overdue: overdue,
		cfg:     cfg,
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with a context
// derived from ctx and are skipped while a previous run is still going.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	cl := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	entries := make(map[string]cron.EntryID, 2)

	jobCtx, cancel := context.WithCancel(ctx)

	add := func(name, spec string, job func(context.Context)) error {
		if spec == "" {
			return nil
		}
		id, err := c.AddFunc(spec, func() { job(jobCtx) })
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
		entries[name] = id
		return nil
	}

	if s.sync != nil {
		if err := add(JobSync, s.cfg.SyncSpec, s.runSync); err != nil {
			cancel()
			return err
		}
	}
	if err := add(JobOverdue, s.cfg.OverdueSpec, s.runOverdue); err != nil {
		cancel()
		return err
	}

	c.Start()
	s.cron, s.entries, s.ctx, s.cancel = c, entries, jobCtx, cancel

	s.log.InfoContext(ctx, "scheduler started",
		slog.String("sync", s.cfg.SyncSpec),
		slog.String("overdue", s.cfg.OverdueSpec),
	)
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel, s.ctx = nil, nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Resume runs every job once, immediately. Call it when the app returns to
// the foreground, since ticks that fell while suspended are not replayed.
func (s *Scheduler) Resume(ctx context.Context) {
	s.runOverdue(ctx)
	if s.sync != nil {
		s.runSync(ctx)
	}
}

// Jobs lists the registered jobs with their next and previous run times.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	specs := map[string]string{JobSync: s.cfg.SyncSpec, JobOverdue: s.cfg.OverdueSpec}
	var out []JobInfo
	for _, name := range []string{JobSync, JobOverdue} {
		id, ok := s.entries[name]
		if !ok {
			continue
		}
		e := s.cron.Entry(id)
		out = append(out, JobInfo{Name: name, Spec: specs[name], Next: e.Next, Prev: e.Prev})
	}
	return out
}

func (s *Scheduler) runSync(ctx context.Context) {
	res := s.sync.SyncAll(ctx)
	if res.Status == domain.SyncStateError {
		s.log.WarnContext(ctx, "scheduled sync failed",
			slog.Any("error", res.Err),
			slog.Int("failures", len(res.Failures)),
		)
	}
}

func (s *Scheduler) runOverdue(ctx context.Context) {
	n, err := s.overdue.RefreshOverdue(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "refresh overdue failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.log.InfoContext(ctx, "verses need revision", slog.Int("count", n))
	}
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
