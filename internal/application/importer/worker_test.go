package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncapp "github.com/portal/backend/internal/application/sync"
	"github.com/portal/backend/internal/domain/sync"
)

func newWorker(sessions sync.SessionRepository, stager Stager, runners RunnerRegistry, transient func(error) bool, timeLimit time.Duration) *SessionWorker {
	audit := syncapp.NewAuditLogger(&memLogRepo{}, zap.NewNop())
	worker := NewSessionWorker(sessions, stager, runners, transient, audit, zap.NewNop(), timeLimit)
	worker.retryDelay = time.Millisecond
	worker.depPoll = time.Millisecond
	return worker
}

func queuedSession(t *testing.T, repo *memSessionRepo, importType sync.ImportType, archive string) *sync.ImportSession {
	t.Helper()
	session, err := sync.NewImportSession(importType)
	require.NoError(t, err)
	session.ArchiveName = archive
	session.Start("task-1")
	require.NoError(t, repo.Save(context.Background(), session))
	return session
}

func TestSessionWorker_Execute(t *testing.T) {
	t.Run("completes session with runner counters", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "import.zip")
		runner := &mockRunner{details: sync.ReportDetails{Created: 5, Total: 5}}
		worker := newWorker(repo, &mockStager{dir: "/staged"}, RunnerRegistry{
			sync.ImportTypeCatalog: runner,
		}, nil, 0)

		err := worker.Execute(context.Background(), Job{
			TaskID: "task-1", SessionID: session.ID,
			ImportType: sync.ImportTypeCatalog, ArchiveName: "import.zip",
		})

		require.NoError(t, err)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusCompleted, stored.Status)
		assert.Equal(t, 5, stored.ReportDetails.Created)
		assert.Equal(t, "/staged", runner.gotDir)
		// Progress lines written during the run survive the terminal write
		assert.Contains(t, stored.Report, "archive import.zip staged")
	})

	t.Run("terminal session is skipped silently", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "")
		failed, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		failed.Fail("reaped")
		require.NoError(t, repo.Save(context.Background(), failed))

		runner := &mockRunner{}
		worker := newWorker(repo, &mockStager{}, RunnerRegistry{
			sync.ImportTypeCatalog: runner,
		}, nil, 0)

		err = worker.Execute(context.Background(), Job{SessionID: session.ID, ImportType: sync.ImportTypeCatalog})

		require.NoError(t, err)
		assert.Zero(t, runner.calls)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, "reaped", stored.ErrorMessage)
	})

	t.Run("runner failure fails the session", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeStocks, "")
		worker := newWorker(repo, &mockStager{}, RunnerRegistry{
			sync.ImportTypeStocks: &mockRunner{err: assert.AnError},
		}, nil, 0)

		err := worker.Execute(context.Background(), Job{SessionID: session.ID, ImportType: sync.ImportTypeStocks})

		require.NoError(t, err)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Contains(t, stored.ErrorMessage, assert.AnError.Error())
	})

	t.Run("missing runner is a session failure, not a panic", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeImages, "")
		worker := newWorker(repo, &mockStager{}, RunnerRegistry{}, nil, 0)

		err := worker.Execute(context.Background(), Job{SessionID: session.ID, ImportType: sync.ImportTypeImages})

		require.NoError(t, err)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Contains(t, stored.ErrorMessage, "no runner registered")
	})

	t.Run("soft time limit aborts with the time limit message", func(t *testing.T) {
		// The repository rejects calls on an expired context, like a real
		// driver would: the terminal write must not ride the timed-out context
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "")
		worker := newWorker(&ctxSessionRepo{repo}, &mockStager{}, RunnerRegistry{
			sync.ImportTypeCatalog: &mockRunner{runDur: 200 * time.Millisecond},
		}, nil, 20*time.Millisecond)

		err := worker.Execute(context.Background(), Job{SessionID: session.ID, ImportType: sync.ImportTypeCatalog})

		require.NoError(t, err)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Equal(t, sync.TimeLimitError, stored.ErrorMessage)
	})

	t.Run("outcome is dropped when the session was finalized mid-run", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "")
		runner := runnerFunc(func(ctx context.Context, s *sync.ImportSession, dir string) (sync.ReportDetails, error) {
			// The reaper fails the session while the runner is still working
			stored, err := repo.FindByID(ctx, s.ID)
			require.NoError(t, err)
			stored.Fail(sync.StaleSessionError)
			require.NoError(t, repo.Save(ctx, stored))
			return sync.ReportDetails{Created: 3}, nil
		})
		worker := newWorker(repo, &mockStager{}, RunnerRegistry{
			sync.ImportTypeCatalog: runner,
		}, nil, 0)

		err := worker.Execute(context.Background(), Job{SessionID: session.ID, ImportType: sync.ImportTypeCatalog})

		require.NoError(t, err)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Equal(t, sync.StaleSessionError, stored.ErrorMessage)
		assert.Zero(t, stored.ReportDetails.Created)
	})
}

func TestSessionWorker_Dependency(t *testing.T) {
	t.Run("waits for the dependency session to complete", func(t *testing.T) {
		repo := newMemSessionRepo()
		depSession := queuedSession(t, repo, sync.ImportTypeCatalog, "import.zip")
		session := queuedSession(t, repo, sync.ImportTypeStocks, "import.zip")
		runner := &mockRunner{details: sync.ReportDetails{Updated: 2}}
		worker := newWorker(repo, &mockStager{dir: "/staged"}, RunnerRegistry{
			sync.ImportTypeStocks: runner,
		}, nil, 0)

		go func() {
			time.Sleep(30 * time.Millisecond)
			dep, err := repo.FindByID(context.Background(), depSession.ID)
			if err != nil {
				return
			}
			dep.Complete(sync.ReportDetails{Created: 10})
			_ = repo.Save(context.Background(), dep)
		}()

		err := worker.Execute(context.Background(), Job{
			SessionID: session.ID, ImportType: sync.ImportTypeStocks,
			ArchiveName: "import.zip", DependsOn: depSession.ID,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, runner.calls)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusCompleted, stored.Status)
	})

	t.Run("failed dependency fails the session without running", func(t *testing.T) {
		repo := newMemSessionRepo()
		depSession := queuedSession(t, repo, sync.ImportTypeCatalog, "import.zip")
		dep, err := repo.FindByID(context.Background(), depSession.ID)
		require.NoError(t, err)
		dep.Fail("catalog file corrupt")
		require.NoError(t, repo.Save(context.Background(), dep))

		session := queuedSession(t, repo, sync.ImportTypeStocks, "import.zip")
		runner := &mockRunner{}
		worker := newWorker(repo, &mockStager{}, RunnerRegistry{
			sync.ImportTypeStocks: runner,
		}, nil, 0)

		err = worker.Execute(context.Background(), Job{
			SessionID: session.ID, ImportType: sync.ImportTypeStocks,
			ArchiveName: "import.zip", DependsOn: depSession.ID,
		})

		require.NoError(t, err)
		assert.Zero(t, runner.calls)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Contains(t, stored.ErrorMessage, "dependency catalog import failed")
	})

	t.Run("time limit bounds the dependency wait", func(t *testing.T) {
		repo := newMemSessionRepo()
		depSession := queuedSession(t, repo, sync.ImportTypeCatalog, "import.zip")
		session := queuedSession(t, repo, sync.ImportTypeStocks, "import.zip")
		worker := newWorker(&ctxSessionRepo{repo}, &mockStager{}, RunnerRegistry{
			sync.ImportTypeStocks: &mockRunner{},
		}, nil, 20*time.Millisecond)

		err := worker.Execute(context.Background(), Job{
			SessionID: session.ID, ImportType: sync.ImportTypeStocks,
			ArchiveName: "import.zip", DependsOn: depSession.ID,
		})

		require.NoError(t, err)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Equal(t, sync.TimeLimitError, stored.ErrorMessage)
	})
}

func TestSessionWorker_StagingRetry(t *testing.T) {
	transientErr := func(err error) bool { return err != nil && err.Error() == "transient" }

	t.Run("transient staging errors are retried", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "import.zip")
		stager := &mockStager{
			dir:  "/staged",
			errs: []error{errTransient, errTransient, nil},
		}
		worker := newWorker(repo, stager, RunnerRegistry{
			sync.ImportTypeCatalog: &mockRunner{},
		}, transientErr, 0)

		err := worker.Execute(context.Background(), Job{
			SessionID: session.ID, ImportType: sync.ImportTypeCatalog, ArchiveName: "import.zip",
		})

		require.NoError(t, err)
		assert.Equal(t, 3, stager.calls)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusCompleted, stored.Status)
	})

	t.Run("permanent staging error fails on the first attempt", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "broken.zip")
		stager := &mockStager{errs: []error{assert.AnError, assert.AnError, assert.AnError}}
		worker := newWorker(repo, stager, RunnerRegistry{
			sync.ImportTypeCatalog: &mockRunner{},
		}, transientErr, 0)

		err := worker.Execute(context.Background(), Job{
			SessionID: session.ID, ImportType: sync.ImportTypeCatalog, ArchiveName: "broken.zip",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, stager.calls)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
		assert.Contains(t, stored.ErrorMessage, "staging failed")
	})

	t.Run("retries give up after the attempt budget", func(t *testing.T) {
		repo := newMemSessionRepo()
		session := queuedSession(t, repo, sync.ImportTypeCatalog, "flaky.zip")
		stager := &mockStager{errs: []error{errTransient, errTransient, errTransient, errTransient}}
		worker := newWorker(repo, stager, RunnerRegistry{
			sync.ImportTypeCatalog: &mockRunner{},
		}, transientErr, 0)

		err := worker.Execute(context.Background(), Job{
			SessionID: session.ID, ImportType: sync.ImportTypeCatalog, ArchiveName: "flaky.zip",
		})

		require.NoError(t, err)
		assert.Equal(t, stagingAttempts, stager.calls)
		stored, err := repo.FindByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, sync.SessionStatusFailed, stored.Status)
	})
}

// errTransient is classified as retryable by the test classifier
var errTransient = &transientTestError{}

type transientTestError struct{}

func (*transientTestError) Error() string { return "transient" }
