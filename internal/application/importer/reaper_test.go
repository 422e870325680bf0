package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/sync"
)

func inProgressSession(t *testing.T, repo *memSessionRepo, importType sync.ImportType, lastUpdate time.Time) *sync.ImportSession {
	t.Helper()
	session, err := sync.NewImportSession(importType)
	require.NoError(t, err)
	session.Start("task")
	session.Begin()
	session.UpdatedAt = lastUpdate
	require.NoError(t, repo.Save(context.Background(), session))
	return session
}

func TestStaleSessionReaper_Sweep(t *testing.T) {
	t.Run("fails sessions silent past the threshold", func(t *testing.T) {
		repo := newMemSessionRepo()
		stale := inProgressSession(t, repo, sync.ImportTypeCatalog, time.Now().Add(-3*time.Hour))
		fresh := inProgressSession(t, repo, sync.ImportTypePrices, time.Now().Add(-time.Hour))
		reaper := NewStaleSessionReaper(repo, zap.NewNop(), 2*time.Hour, time.Minute)

		reaped, err := reaper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, reaped)

		stored, err := repo.FindByID(context.Background(), stale.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Equal(t, sync.StaleSessionError, stored.ErrorMessage)

		stored, err = repo.FindByID(context.Background(), fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusInProgress, stored.Status)
	})

	t.Run("terminal sessions are never touched however old", func(t *testing.T) {
		repo := newMemSessionRepo()
		session, err := sync.NewImportSession(sync.ImportTypeImages)
		require.NoError(t, err)
		session.Start("task")
		session.Begin()
		session.Complete(sync.ReportDetails{Created: 4})
		session.UpdatedAt = time.Now().Add(-10 * time.Hour)
		require.NoError(t, repo.Save(context.Background(), session))
		reaper := NewStaleSessionReaper(repo, zap.NewNop(), 2*time.Hour, time.Minute)

		reaped, err := reaper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Zero(t, reaped)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusCompleted, stored.Status)
	})

	t.Run("session finished after the stale query keeps its outcome", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := inProgressSession(t, repo, sync.ImportTypeCatalog, time.Now().Add(-3*time.Hour))
		reaper := NewStaleSessionReaper(&lateFinishRepo{memSessionRepo: repo}, zap.NewNop(), 2*time.Hour, time.Minute)

		reaped, err := reaper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Zero(t, reaped)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusCompleted, stored.Status)
		assert.Equal(t, 7, stored.ReportDetails.Created)
		assert.Empty(t, stored.ErrorMessage)
	})
}

// lateFinishRepo completes every stale session right after reporting it,
// mimicking a worker that finishes between the stale query and the reap write
type lateFinishRepo struct {
	*memSessionRepo
}

func (r *lateFinishRepo) FindStale(ctx context.Context, cutoff time.Time) ([]*sync.ImportSession, error) {
	stale, err := r.memSessionRepo.FindStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, s := range stale {
		stored, err := r.memSessionRepo.FindByID(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		stored.Complete(sync.ReportDetails{Created: 7})
		if err := r.memSessionRepo.Save(ctx, stored); err != nil {
			return nil, err
		}
	}
	return stale, nil
}
