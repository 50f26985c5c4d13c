package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Housekeeping job types.
const (
	TypePurgeLoginCodes = "auth.purge_login_codes"
	TypeReconcilePoints = "points.reconcile"
	TypePurgeDoneJobs   = "jobs.purge_done"
)

// doneRetention is how long finished jobs stay in the table.
const doneRetention = 7 * 24 * time.Hour

// Housekeeper is the part of the store the housekeeping jobs touch.
type Housekeeper interface {
	PurgeExpiredLoginCodes(ctx context.Context, now int64) (int64, error)
	ReconcilePoints(ctx context.Context) (int64, error)
}

// Handlers returns the housekeeping handlers keyed by job type.
func Handlers(store Housekeeper, repo *Repository, logger *slog.Logger) map[string]Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return map[string]Handler{
		TypePurgeLoginCodes: func(ctx context.Context, j *Job) error {
			n, err := store.PurgeExpiredLoginCodes(ctx, time.Now().UTC().UnixMilli())
			if err != nil {
				return fmt.Errorf("purge login codes: %w", err)
			}
			logger.Info("jobs: expired login codes purged", "count", n)
			return nil
		},
		TypeReconcilePoints: func(ctx context.Context, j *Job) error {
			n, err := store.ReconcilePoints(ctx)
			if err != nil {
				return fmt.Errorf("reconcile points: %w", err)
			}
			if n > 0 {
				logger.Warn("jobs: profile points drifted from ledger", "corrected", n)
			}
			return nil
		},
		TypePurgeDoneJobs: func(ctx context.Context, j *Job) error {
			n, err := repo.PurgeDone(ctx, time.Now().Add(-doneRetention))
			if err != nil {
				return err
			}
			logger.Debug("jobs: finished jobs purged", "count", n)
			return nil
		},
	}
}

// Scheduler enqueues the periodic job types once per interval, skipping a
// type while an earlier run is still pending.
type Scheduler struct {
	pool     *WorkerPool
	interval time.Duration
	types    []string
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewScheduler(pool *WorkerPool, interval time.Duration, logger *slog.Logger, types ...string) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(types) == 0 {
		types = []string{TypePurgeLoginCodes, TypeReconcilePoints, TypePurgeDoneJobs}
	}
	return &Scheduler{pool: pool, interval: interval, types: types, logger: logger}
}

// Start enqueues one round immediately and then one per tick until ctx is
// canceled. Wait blocks until the loop has exited.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, typ := range s.types {
		pending, err := s.pool.repo.Pending(ctx, typ)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("jobs: scheduler pending check", "type", typ, "err", err)
			}
			continue
		}
		if pending {
			continue
		}
		if _, err := s.pool.Enqueue(ctx, typ, nil, 100, 3); err != nil && ctx.Err() == nil {
			s.logger.Error("jobs: scheduler enqueue", "type", typ, "err", err)
		}
	}
}
