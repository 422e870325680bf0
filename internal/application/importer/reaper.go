package importer

import (
	"context"
	"time"

	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// StaleSessionReaper periodically fails in_progress sessions whose worker
// stopped updating them, so poll clients see a terminal state instead of a
// session stuck forever.
type StaleSessionReaper struct {
	sessions  sync.SessionRepository
	logger    *zap.Logger
	threshold time.Duration
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewStaleSessionReaper creates a new StaleSessionReaper. threshold is the
// silence window after which a session counts as abandoned; interval is how
// often the sweep runs.
func NewStaleSessionReaper(
	sessions sync.SessionRepository,
	logger *zap.Logger,
	threshold time.Duration,
	interval time.Duration,
) *StaleSessionReaper {
	return &StaleSessionReaper{
		sessions:  sessions,
		logger:    logger,
		threshold: threshold,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background sweep loop
func (r *StaleSessionReaper) Start(ctx context.Context) {
	go r.loop(ctx)
	r.logger.Info("Stale session reaper started",
		zap.Duration("threshold", r.threshold),
		zap.Duration("interval", r.interval),
	)
}

// Stop signals the loop to exit and waits for it
func (r *StaleSessionReaper) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info("Stale session reaper stopped")
}

func (r *StaleSessionReaper) loop(ctx context.Context) {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("Stale session sweep failed", zap.Error(err))
			}
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep fails every non-terminal session silent for longer than the
// threshold and returns how many it reaped
func (r *StaleSessionReaper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.threshold)
	stale, err := r.sessions.FindStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, session := range stale {
		session.Fail(sync.StaleSessionError)
		// Conditional write: a worker finishing the session between the stale
		// query and this point keeps its real outcome
		stored, err := r.sessions.FinalizeIfActive(ctx, session)
		if err != nil {
			r.logger.Error("Failed to reap stale session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !stored {
			continue
		}
		reaped++
		r.logger.Warn("Reaped stale import session",
			zap.String("session_id", session.ID.String()),
			zap.String("import_type", string(session.ImportType)),
			zap.Time("last_update", session.UpdatedAt),
		)
	}
	return reaped, nil
}
