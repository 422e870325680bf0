package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConflictRepository persists resolved sync conflicts
type ConflictRepository interface {
	Save(ctx context.Context, conflict *SyncConflict) error
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*SyncConflict, error)
}

// LogRepository is the append-only store behind the correlation logger.
// Append never overwrites; DeleteOlderThan is the retention sweep.
type LogRepository interface {
	Append(ctx context.Context, entry *CustomerSyncLog) error
	FindByCorrelation(ctx context.Context, correlationID string) ([]*CustomerSyncLog, error)
	Summarize(ctx context.Context, period SummaryPeriod) ([]SummaryRow, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionRepository persists import sessions
type SessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ImportSession, error)
	// FindStartedByType returns the most recent session of the given type still
	// in the started state, or shared.ErrNotFound. Used to reuse queued
	// customer-import sessions instead of stacking duplicates.
	FindStartedByType(ctx context.Context, importType ImportType) (*ImportSession, error)
	// FindStale returns in_progress sessions whose last update is older than
	// the cutoff; the reaper force-fails them.
	FindStale(ctx context.Context, cutoff time.Time) ([]*ImportSession, error)
	Save(ctx context.Context, session *ImportSession) error
	// FinalizeIfActive writes the session's terminal state only when the stored
	// row is not already terminal, and reports whether the write happened.
	// Writers racing to finish the same session (worker vs reaper) go through
	// this so the first terminal write wins at the store, not in memory.
	FinalizeIfActive(ctx context.Context, session *ImportSession) (bool, error)
}
