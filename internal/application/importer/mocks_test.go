package importer

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/portal/backend/internal/domain/catalog"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
)

// Hand-rolled mocks shared by the tests in this package.

type memSessionRepo struct {
	mu       gosync.Mutex
	sessions map[uuid.UUID]*sync.ImportSession
	saveErr  error
	findErr  error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*sync.ImportSession)}
}

func (m *memSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.ImportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memSessionRepo) FindStartedByType(ctx context.Context, importType sync.ImportType) (*sync.ImportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ImportType == importType && s.Status == sync.SessionStatusStarted {
			copied := *s
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memSessionRepo) FindStale(ctx context.Context, cutoff time.Time) ([]*sync.ImportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sync.ImportSession
	for _, s := range m.sessions {
		if s.Status == sync.SessionStatusInProgress && s.UpdatedAt.Before(cutoff) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memSessionRepo) Save(ctx context.Context, session *sync.ImportSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memSessionRepo) FinalizeIfActive(ctx context.Context, session *sync.ImportSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return false, m.saveErr
	}
	current, ok := m.sessions[session.ID]
	if !ok {
		return false, shared.ErrNotFound
	}
	if current.Status.IsTerminal() {
		return false, nil
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return true, nil
}

func (m *memSessionRepo) byType(importType sync.ImportType) []*sync.ImportSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sync.ImportSession
	for _, s := range m.sessions {
		if s.ImportType == importType {
			out = append(out, s)
		}
	}
	return out
}

// ctxSessionRepo behaves like a real driver-backed repository: any call made
// with a cancelled or expired context fails instead of silently succeeding
type ctxSessionRepo struct {
	*memSessionRepo
}

func (c *ctxSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.ImportSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.memSessionRepo.FindByID(ctx, id)
}

func (c *ctxSessionRepo) Save(ctx context.Context, session *sync.ImportSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memSessionRepo.Save(ctx, session)
}

func (c *ctxSessionRepo) FinalizeIfActive(ctx context.Context, session *sync.ImportSession) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.memSessionRepo.FinalizeIfActive(ctx, session)
}

type memLogRepo struct {
	entries []*sync.CustomerSyncLog
}

func (m *memLogRepo) Append(ctx context.Context, entry *sync.CustomerSyncLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memLogRepo) FindByCorrelation(ctx context.Context, correlationID string) ([]*sync.CustomerSyncLog, error) {
	var out []*sync.CustomerSyncLog
	for _, e := range m.entries {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLogRepo) Summarize(ctx context.Context, period sync.SummaryPeriod) ([]sync.SummaryRow, error) {
	return nil, nil
}

func (m *memLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockProductRepo struct {
	existsActive bool
	existsErr    error
	products     map[string]*catalog.Product
	saved        []*catalog.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[string]*catalog.Product)}
}

func (m *mockProductRepo) FindByOnecID(ctx context.Context, onecID string) (*catalog.Product, error) {
	if p, ok := m.products[onecID]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockProductRepo) ExistsActive(ctx context.Context) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existsActive, nil
}

func (m *mockProductRepo) Save(ctx context.Context, product *catalog.Product) error {
	m.saved = append(m.saved, product)
	m.products[product.OnecID] = product
	return nil
}

func (m *mockProductRepo) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	for _, p := range products {
		if err := m.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

type mockLock struct {
	held       bool
	acquireErr error
	acquires   int
	releases   int
}

func (m *mockLock) TryAcquire(ctx context.Context) (bool, error) {
	m.acquires++
	if m.acquireErr != nil {
		return false, m.acquireErr
	}
	return !m.held, nil
}

func (m *mockLock) Release(ctx context.Context) error {
	m.releases++
	return nil
}

type mockDispatcher struct {
	jobs        []Job
	dispatchErr error
}

func (m *mockDispatcher) Dispatch(job Job) error {
	if m.dispatchErr != nil {
		return m.dispatchErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockStager struct {
	dir      string
	errs     []error
	calls    int
	stageDur time.Duration
}

func (m *mockStager) Stage(ctx context.Context, archiveName string) (string, error) {
	idx := m.calls
	m.calls++
	if m.stageDur > 0 {
		select {
		case <-time.After(m.stageDur):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	return m.dir, nil
}

type runnerFunc func(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error)

func (f runnerFunc) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	return f(ctx, session, dir)
}

type mockRunner struct {
	details sync.ReportDetails
	err     error
	runDur  time.Duration
	calls   int
	gotDir  string
}

func (m *mockRunner) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	m.calls++
	m.gotDir = dir
	if m.runDur > 0 {
		select {
		case <-time.After(m.runDur):
		case <-ctx.Done():
			return sync.ReportDetails{}, ctx.Err()
		}
	}
	return m.details, m.err
}
