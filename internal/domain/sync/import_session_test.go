package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImportSession(t *testing.T) {
	t.Run("creates pending session", func(t *testing.T) {
		session, err := NewImportSession(ImportTypeCatalog)
		require.NoError(t, err)
		assert.Equal(t, SessionStatusPending, session.Status)
		assert.Equal(t, ImportTypeCatalog, session.ImportType)
		assert.Empty(t, session.TaskID)
		assert.Nil(t, session.StartedAt)
	})

	t.Run("rejects unknown import type", func(t *testing.T) {
		_, err := NewImportSession(ImportType("bogus"))
		assert.Error(t, err)
	})
}

func TestImportSession_Lifecycle(t *testing.T) {
	session, err := NewImportSession(ImportTypeStocks)
	require.NoError(t, err)

	session.Start("task-1")
	assert.Equal(t, SessionStatusStarted, session.Status)
	assert.Equal(t, "task-1", session.TaskID)
	require.NotNil(t, session.StartedAt)

	session.Begin()
	assert.Equal(t, SessionStatusInProgress, session.Status)

	session.Complete(ReportDetails{Created: 3, Updated: 2, Total: 5})
	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, 3, session.ReportDetails.Created)
	require.NotNil(t, session.FinishedAt)
}

func TestImportSession_TerminalTransitionsAreSilent(t *testing.T) {
	t.Run("completed session ignores fail", func(t *testing.T) {
		session, err := NewImportSession(ImportTypeCatalog)
		require.NoError(t, err)
		session.Complete(ReportDetails{Total: 10})

		session.Fail("late worker error")

		assert.Equal(t, SessionStatusCompleted, session.Status)
		assert.Empty(t, session.ErrorMessage)
		assert.Equal(t, 10, session.ReportDetails.Total)
	})

	t.Run("failed session ignores complete", func(t *testing.T) {
		session, err := NewImportSession(ImportTypeCatalog)
		require.NoError(t, err)
		session.Fail("first failure wins")

		session.Complete(ReportDetails{Created: 99})

		assert.Equal(t, SessionStatusFailed, session.Status)
		assert.Equal(t, "first failure wins", session.ErrorMessage)
		assert.Zero(t, session.ReportDetails.Created)
	})

	t.Run("failed session ignores start and begin", func(t *testing.T) {
		session, err := NewImportSession(ImportTypeCustomers)
		require.NoError(t, err)
		session.Fail(StaleSessionError)
		finished := session.FinishedAt

		session.Start("task-2")
		session.Begin()

		assert.Equal(t, SessionStatusFailed, session.Status)
		assert.Empty(t, session.TaskID)
		assert.Equal(t, finished, session.FinishedAt)
	})
}

func TestImportSession_IsStale(t *testing.T) {
	session, err := NewImportSession(ImportTypePrices)
	require.NoError(t, err)
	session.Begin()
	now := session.UpdatedAt

	assert.False(t, session.IsStale(2*time.Hour, now.Add(time.Hour)))
	assert.True(t, session.IsStale(2*time.Hour, now.Add(3*time.Hour)))

	// Terminal sessions are never stale regardless of age
	session.Complete(ReportDetails{})
	assert.False(t, session.IsStale(2*time.Hour, session.UpdatedAt.Add(48*time.Hour)))
}

func TestImportSession_AppendReport(t *testing.T) {
	session, err := NewImportSession(ImportTypeImages)
	require.NoError(t, err)

	session.AppendReport("archive staged")
	session.AppendReport("12 images linked")

	lines := session.Report
	assert.Contains(t, lines, "archive staged")
	assert.Contains(t, lines, "12 images linked")
	assert.Contains(t, lines, "\n")
}

func TestImportType_RequiresCatalog(t *testing.T) {
	assert.True(t, ImportTypeStocks.RequiresCatalog())
	assert.True(t, ImportTypePrices.RequiresCatalog())
	assert.True(t, ImportTypeImages.RequiresCatalog())
	assert.False(t, ImportTypeCatalog.RequiresCatalog())
	assert.False(t, ImportTypeCustomers.RequiresCatalog())
}

func TestImportSession_ReportDetailsJSON(t *testing.T) {
	session, err := NewImportSession(ImportTypeCatalog)
	require.NoError(t, err)
	session.ReportDetails = ReportDetails{Created: 1, Updated: 2, Skipped: 3, Errors: 4, Total: 10}

	data, err := session.ReportDetailsJSON()
	require.NoError(t, err)

	restored, err := NewImportSession(ImportTypeCatalog)
	require.NoError(t, err)
	require.NoError(t, restored.SetReportDetailsFromJSON(data))
	assert.Equal(t, session.ReportDetails, restored.ReportDetails)

	require.NoError(t, restored.SetReportDetailsFromJSON(""))
	assert.Zero(t, restored.ReportDetails)
}
