package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	syncapp "github.com/portal/backend/internal/application/sync"
	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

const (
	stagingAttempts        = 3
	stagingInitialDelay    = time.Second
	dependencyPollInterval = 2 * time.Second
)

// Stager unpacks a named exchange archive into a working directory and
// returns that directory. Staging must be idempotent: repeating it for an
// already-unpacked archive is a cheap no-op.
type Stager interface {
	Stage(ctx context.Context, archiveName string) (string, error)
}

// Runner executes one import type against staged exchange files
type Runner interface {
	Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error)
}

// RunnerRegistry maps each import type to its runner. Lookups for unmapped
// types are a wiring bug surfaced as a session failure, not a panic.
type RunnerRegistry map[sync.ImportType]Runner

// SessionWorker executes dispatched import jobs: it moves the session to
// in_progress, stages the archive, runs the type-specific runner, and records
// the terminal outcome. Every branch ends in exactly one terminal write.
type SessionWorker struct {
	sessions  sync.SessionRepository
	stager    Stager
	runners   RunnerRegistry
	transient func(error) bool
	audit     *syncapp.AuditLogger
	logger    *zap.Logger
	timeLimit time.Duration
	// backoff seed between staging attempts, doubled per retry
	retryDelay time.Duration
	// how often a job waiting on its dependency session re-checks it
	depPoll time.Duration
}

// NewSessionWorker creates a new SessionWorker. transient classifies staging
// errors worth retrying; a nil classifier retries nothing.
func NewSessionWorker(
	sessions sync.SessionRepository,
	stager Stager,
	runners RunnerRegistry,
	transient func(error) bool,
	audit *syncapp.AuditLogger,
	logger *zap.Logger,
	timeLimit time.Duration,
) *SessionWorker {
	if transient == nil {
		transient = func(error) bool { return false }
	}
	return &SessionWorker{
		sessions:  sessions,
		stager:    stager,
		runners:   runners,
		transient: transient,
		audit:     audit,
		logger:    logger,
		timeLimit: timeLimit,

		retryDelay: stagingInitialDelay,
		depPoll:    dependencyPollInterval,
	}
}

// Execute runs one import job to a terminal state. It never returns an error
// for domain-level failures; those are recorded on the session. The returned
// error signals infrastructure trouble only (session unreachable).
func (w *SessionWorker) Execute(ctx context.Context, job Job) error {
	session, err := w.sessions.FindByID(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", job.SessionID, err)
	}
	if session.Status.IsTerminal() {
		// Reaper or a duplicate delivery got here first
		w.logger.Info("Skipping job for terminal session",
			zap.String("session_id", session.ID.String()),
			zap.String("status", string(session.Status)),
		)
		return nil
	}

	session.Begin()
	if err := w.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to mark session in progress: %w", err)
	}

	// The terminal write and its audit entry must land even when the run
	// burned the whole time budget, so they use a detached context
	finalizeCtx := context.WithoutCancel(ctx)
	if w.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeLimit)
		defer cancel()
	}

	correlationID := syncapp.NewCorrelationID()
	started := time.Now()

	details, runErr := w.run(ctx, session, job)

	switch {
	case runErr == nil:
		session.Complete(details)
		w.audit.Record(finalizeCtx, sync.OpBatchSummary, sync.LogStatusSuccess, correlationID,
			syncapp.WithDuration(time.Since(started)),
			syncapp.WithDetails(sync.LogDetails{
				"import_type": string(job.ImportType),
				"session_id":  session.ID.String(),
				"created":     details.Created,
				"updated":     details.Updated,
				"skipped":     details.Skipped,
				"errors":      details.Errors,
			}),
		)
	case errors.Is(runErr, context.DeadlineExceeded):
		session.Fail(sync.TimeLimitError)
		w.logger.Warn("Import aborted on time limit",
			zap.String("session_id", session.ID.String()),
			zap.Duration("limit", w.timeLimit),
		)
	default:
		session.Fail(runErr.Error())
		w.audit.Record(finalizeCtx, sync.OpBatchSummary, sync.LogStatusError, correlationID,
			syncapp.WithError(runErr),
			syncapp.WithDetails(sync.LogDetails{
				"import_type": string(job.ImportType),
				"session_id":  session.ID.String(),
			}),
		)
	}

	// Conditional write: if the reaper or a duplicate delivery finished the
	// session first, that outcome stands and this one is dropped
	stored, err := w.sessions.FinalizeIfActive(finalizeCtx, session)
	if err != nil {
		return fmt.Errorf("failed to finalize session %s: %w", job.SessionID, err)
	}
	if !stored {
		w.logger.Info("Session already finalized elsewhere, outcome dropped",
			zap.String("session_id", session.ID.String()),
			zap.String("import_type", string(job.ImportType)),
		)
	}
	return nil
}

func (w *SessionWorker) run(ctx context.Context, session *sync.ImportSession, job Job) (sync.ReportDetails, error) {
	runner, ok := w.runners[job.ImportType]
	if !ok {
		return sync.ReportDetails{}, fmt.Errorf("no runner registered for import type %s", job.ImportType)
	}

	if job.DependsOn != uuid.Nil {
		if err := w.awaitDependency(ctx, job.DependsOn); err != nil {
			return sync.ReportDetails{}, err
		}
		session.AppendReport("catalog dependency satisfied")
	}

	var dir string
	if job.ArchiveName != "" {
		var err error
		dir, err = w.stageWithRetry(ctx, job.ArchiveName)
		if err != nil {
			return sync.ReportDetails{}, fmt.Errorf("staging failed: %w", err)
		}
		session.AppendReport(fmt.Sprintf("archive %s staged", job.ArchiveName))
	}

	return runner.Run(ctx, session, dir)
}

// awaitDependency blocks until the named session reaches a terminal state.
// A failed dependency is a permanent error: running stocks or prices against
// the catalog that was supposed to be populated by a failed import would
// silently skip every record.
func (w *SessionWorker) awaitDependency(ctx context.Context, id uuid.UUID) error {
	for {
		dep, err := w.sessions.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check dependency session %s: %w", id, err)
		}
		switch dep.Status {
		case sync.SessionStatusCompleted:
			return nil
		case sync.SessionStatusFailed:
			return fmt.Errorf("dependency %s import failed: %s", dep.ImportType, dep.ErrorMessage)
		}
		select {
		case <-time.After(w.depPoll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stageWithRetry retries transient staging failures with exponential backoff.
// Corrupt archives and other permanent errors fail on the first attempt.
func (w *SessionWorker) stageWithRetry(ctx context.Context, archiveName string) (string, error) {
	delay := w.retryDelay
	var lastErr error
	for attempt := 1; attempt <= stagingAttempts; attempt++ {
		dir, err := w.stager.Stage(ctx, archiveName)
		if err == nil {
			return dir, nil
		}
		lastErr = err
		if !w.transient(err) || attempt == stagingAttempts {
			break
		}
		w.logger.Warn("Transient staging failure, retrying",
			zap.String("archive", archiveName),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
	return "", lastErr
}
