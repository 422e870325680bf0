package syncapp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/portal/backend/internal/domain/account"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
)

// Hand-rolled mocks shared by the tests in this package.

type mockAccountRepo struct {
	accounts  []*account.CustomerAccount
	saved     []*account.CustomerAccount
	findErr   error
	saveErr   error
	findCalls []string
}

func (m *mockAccountRepo) findBy(field string, match func(*account.CustomerAccount) bool) (*account.CustomerAccount, error) {
	m.findCalls = append(m.findCalls, field)
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, a := range m.accounts {
		if match(a) {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockAccountRepo) FindByOnecID(ctx context.Context, onecID string) (*account.CustomerAccount, error) {
	return m.findBy("onec_id", func(a *account.CustomerAccount) bool { return a.OnecID == onecID })
}

func (m *mockAccountRepo) FindByOnecGUID(ctx context.Context, onecGUID string) (*account.CustomerAccount, error) {
	return m.findBy("onec_guid", func(a *account.CustomerAccount) bool { return a.OnecGUID == onecGUID })
}

func (m *mockAccountRepo) FindByTaxID(ctx context.Context, taxID string) (*account.CustomerAccount, error) {
	return m.findBy("tax_id", func(a *account.CustomerAccount) bool { return a.TaxID == taxID })
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*account.CustomerAccount, error) {
	return m.findBy("email", func(a *account.CustomerAccount) bool { return a.Email == email })
}

func (m *mockAccountRepo) Save(ctx context.Context, acct *account.CustomerAccount) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, acct)
	return nil
}

type memLogRepo struct {
	entries   []*sync.CustomerSyncLog
	appendErr error
}

func (m *memLogRepo) Append(ctx context.Context, entry *sync.CustomerSyncLog) error {
	if m.appendErr != nil {
		return m.appendErr
	}
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
	counts := map[[2]string]int64{}
	for _, e := range m.entries {
		counts[[2]string{string(e.OperationType), string(e.Status)}]++
	}
	var rows []sync.SummaryRow
	for k, c := range counts {
		rows = append(rows, sync.SummaryRow{
			OperationType: sync.OperationType(k[0]),
			Status:        sync.LogStatus(k[1]),
			Count:         c,
		})
	}
	return rows, nil
}

func (m *memLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := m.entries[:0]
	var deleted int64
	for _, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// byOperation filters recorded entries for assertions
func (m *memLogRepo) byOperation(op sync.OperationType) []*sync.CustomerSyncLog {
	var out []*sync.CustomerSyncLog
	for _, e := range m.entries {
		if e.OperationType == op {
			out = append(out, e)
		}
	}
	return out
}

type memConflictRepo struct {
	conflicts []*sync.SyncConflict
	saveErr   error
}

func (m *memConflictRepo) Save(ctx context.Context, conflict *sync.SyncConflict) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.conflicts = append(m.conflicts, conflict)
	return nil
}

func (m *memConflictRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*sync.SyncConflict, error) {
	var out []*sync.SyncConflict
	for _, c := range m.conflicts {
		if c.CustomerID != nil && *c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockNotifier struct {
	notifyErr  error
	calls      int
	recipients []string
	subject    string
}

func (m *mockNotifier) Notify(ctx context.Context, recipients []string, subject, body string) error {
	m.calls++
	m.recipients = recipients
	m.subject = subject
	return m.notifyErr
}

// passthroughTx runs the function without a real transaction and records
// whether the batch asked for a rollback
type passthroughTx struct {
	calls      int
	rolledBack bool
}

func (tx *passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	if err := fn(ctx); err != nil {
		tx.rolledBack = true
		return err
	}
	return nil
}
