package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	syncapp "github.com/portal/backend/internal/application/sync"
	"github.com/portal/backend/internal/domain/catalog"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// ImportLock is the single global mutex serializing import runs. TryAcquire is
// non-blocking: false means another import holds the lock, which callers must
// treat as a normal outcome, not an error.
type ImportLock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Job is one unit of asynchronous import work. DependsOn, when set, names a
// session this job must not run ahead of: the worker holds the job until that
// session completes.
type Job struct {
	TaskID      string
	SessionID   uuid.UUID
	ImportType  sync.ImportType
	ArchiveName string
	DependsOn   uuid.UUID
}

// Dispatcher hands jobs to the asynchronous worker pool. Dispatch returns once
// the job is durably queued; execution happens out-of-band.
type Dispatcher interface {
	Dispatch(job Job) error
}

// dispatchRank orders requested types so catalog-independent imports are
// queued before the ones that need a populated catalog
var dispatchRank = map[sync.ImportType]int{
	sync.ImportTypeCatalog:    0,
	sync.ImportTypeVariants:   1,
	sync.ImportTypeAttributes: 2,
	sync.ImportTypeCustomers:  3,
	sync.ImportTypeStocks:     4,
	sync.ImportTypePrices:     5,
	sync.ImportTypeImages:     6,
}

// Orchestrator validates preconditions, takes the global import lock, creates
// or reuses sessions, and dispatches one worker job per requested type. The
// lock covers dispatch only; it is released before any worker runs.
type Orchestrator struct {
	sessions sync.SessionRepository
	products catalog.ProductRepository
	lock     ImportLock
	dispatch Dispatcher
	audit    *syncapp.AuditLogger
	logger   *zap.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	sessions sync.SessionRepository,
	products catalog.ProductRepository,
	lock ImportLock,
	dispatch Dispatcher,
	audit *syncapp.AuditLogger,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		products: products,
		lock:     lock,
		dispatch: dispatch,
		audit:    audit,
		logger:   logger,
	}
}

// Launch starts one import session per requested type. It fails with
// shared.ErrDependencyNotMet before touching the lock or any session when a
// catalog-dependent type is requested against an empty catalog, and with
// shared.ErrImportInProgress when the global lock is held. archiveName is
// recorded as-is; unpacking is the worker's job.
func (o *Orchestrator) Launch(
	ctx context.Context,
	types []sync.ImportType,
	archiveName string,
	correlationID string,
) ([]*sync.ImportSession, error) {
	if len(types) == 0 {
		return nil, shared.NewDomainError("INVALID_IMPORT_TYPE", "At least one import type is required")
	}
	ordered := make([]sync.ImportType, 0, len(types))
	seen := make(map[sync.ImportType]bool, len(types))
	for _, t := range types {
		if !t.IsValid() {
			return nil, shared.NewDomainError("INVALID_IMPORT_TYPE", fmt.Sprintf("Invalid import type: %s", t))
		}
		if !seen[t] {
			seen[t] = true
			ordered = append(ordered, t)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return dispatchRank[ordered[i]] < dispatchRank[ordered[j]]
	})

	// Preconditions come first: no lock, no session is touched on failure
	if err := o.checkCatalogDependency(ctx, ordered); err != nil {
		return nil, err
	}

	acquired, err := o.lock.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !acquired {
		o.logger.Info("Import launch rejected: lock held",
			zap.String("correlation_id", correlationID),
		)
		return nil, shared.ErrImportInProgress
	}
	defer func() {
		if err := o.lock.Release(ctx); err != nil {
			o.logger.Warn("Failed to release import lock", zap.Error(err))
		}
	}()

	sessions := make([]*sync.ImportSession, 0, len(ordered))
	var catalogSessionID uuid.UUID
	for _, importType := range ordered {
		session, reused, err := o.prepareSession(ctx, importType, archiveName)
		if err != nil {
			return sessions, err
		}
		if reused {
			// Already queued with a worker task; do not dispatch it twice
			sessions = append(sessions, session)
			continue
		}

		taskID := uuid.NewString()
		job := Job{
			TaskID:      taskID,
			SessionID:   session.ID,
			ImportType:  importType,
			ArchiveName: session.ArchiveName,
		}
		if importType == sync.ImportTypeCatalog {
			catalogSessionID = session.ID
		} else if importType.RequiresCatalog() && catalogSessionID != uuid.Nil {
			// The same launch carries the catalog import; this job must wait
			// for it instead of racing it across pool workers
			job.DependsOn = catalogSessionID
		}

		// The session is saved as started before dispatch, so the worker can
		// never race this write and have its own progress overwritten
		session.Start(taskID)
		if err := o.sessions.Save(ctx, session); err != nil {
			return sessions, fmt.Errorf("failed to save session: %w", err)
		}
		if err := o.dispatch.Dispatch(job); err != nil {
			session.Fail(fmt.Sprintf("dispatch failed: %v", err))
			if _, saveErr := o.sessions.FinalizeIfActive(ctx, session); saveErr != nil {
				o.logger.Error("Failed to persist dispatch failure",
					zap.String("session_id", session.ID.String()),
					zap.Error(saveErr),
				)
			}
			return sessions, fmt.Errorf("failed to dispatch %s import: %w", importType, err)
		}
		sessions = append(sessions, session)

		o.logger.Info("Import session dispatched",
			zap.String("session_id", session.ID.String()),
			zap.String("import_type", string(importType)),
			zap.String("task_id", taskID),
		)
	}

	sessionIDs := make([]string, len(sessions))
	for i, s := range sessions {
		sessionIDs[i] = s.ID.String()
	}
	o.audit.Record(ctx, sync.OpBatchSummary, sync.LogStatusSuccess, correlationID,
		WithImportDetails(ordered, sessionIDs, archiveName),
	)

	return sessions, nil
}

// WithImportDetails builds the audit detail option for an orchestrator launch
func WithImportDetails(types []sync.ImportType, sessionIDs []string, archiveName string) syncapp.EntryOption {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	details := sync.LogDetails{
		"import_types": names,
		"sessions":     sessionIDs,
	}
	if archiveName != "" {
		details["archive"] = archiveName
	}
	return syncapp.WithDetails(details)
}

// checkCatalogDependency rejects catalog-dependent imports against an empty
// catalog, unless the same launch also carries the catalog import that will
// populate it
func (o *Orchestrator) checkCatalogDependency(ctx context.Context, types []sync.ImportType) error {
	var needsCatalog bool
	for _, t := range types {
		if t == sync.ImportTypeCatalog {
			// The launch itself populates the catalog first
			return nil
		}
		if t.RequiresCatalog() {
			needsCatalog = true
		}
	}
	if !needsCatalog {
		return nil
	}

	exists, err := o.products.ExistsActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to check catalog: %w", err)
	}
	if !exists {
		return shared.ErrDependencyNotMet
	}
	return nil
}

// prepareSession creates a new pending session, or for customer imports
// reuses an already-queued one so duplicate triggers cannot stack parallel
// customer sessions
func (o *Orchestrator) prepareSession(ctx context.Context, importType sync.ImportType, archiveName string) (*sync.ImportSession, bool, error) {
	if importType == sync.ImportTypeCustomers {
		existing, err := o.sessions.FindStartedByType(ctx, importType)
		if err == nil {
			o.logger.Info("Reusing queued customer import session",
				zap.String("session_id", existing.ID.String()),
			)
			return existing, true, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to look up existing session: %w", err)
		}
	}

	session, err := sync.NewImportSession(importType)
	if err != nil {
		return nil, false, err
	}
	session.ArchiveName = archiveName
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	return session, false, nil
}
