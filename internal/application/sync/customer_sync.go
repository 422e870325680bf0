package syncapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/portal/backend/internal/domain/account"
	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// TxRunner executes a function inside one database transaction. Returning an
// error rolls everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// errDryRunRollback aborts a dry-run transaction after the batch has executed
var errDryRunRollback = errors.New("dry run: rolling back batch")

// CustomerSyncService drives one batch of inbound 1C customer records through
// the identify/resolve pipeline. Each batch runs in a single transaction so a
// mid-batch failure cannot leave half-applied customer data.
type CustomerSyncService struct {
	accounts account.Repository
	resolver *IdentityResolver
	conflict *ConflictResolver
	audit    *AuditLogger
	tx       TxRunner
	logger   *zap.Logger
}

// NewCustomerSyncService creates a new CustomerSyncService
func NewCustomerSyncService(
	accounts account.Repository,
	resolver *IdentityResolver,
	conflict *ConflictResolver,
	audit *AuditLogger,
	tx TxRunner,
	logger *zap.Logger,
) *CustomerSyncService {
	return &CustomerSyncService{
		accounts: accounts,
		resolver: resolver,
		conflict: conflict,
		audit:    audit,
		tx:       tx,
		logger:   logger,
	}
}

// ProcessBatch identifies every payload and either creates a new account or
// resolves the conflicts against the matched one. With dryRun set, the whole
// batch executes and is then rolled back; the returned counters still reflect
// what would have happened.
func (s *CustomerSyncService) ProcessBatch(
	ctx context.Context,
	payloads []sync.CustomerPayload,
	correlationID string,
	dryRun bool,
) (sync.ReportDetails, error) {
	started := time.Now()
	var details sync.ReportDetails
	details.Total = len(payloads)

	run := func(ctx context.Context) error {
		for _, payload := range payloads {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.processOne(ctx, payload, correlationID, &details)
		}
		if dryRun {
			return errDryRunRollback
		}
		return nil
	}

	err := s.tx.InTx(ctx, run)
	if err != nil && !errors.Is(err, errDryRunRollback) {
		s.audit.Record(ctx, sync.OpBatchSummary, sync.LogStatusError, correlationID,
			WithDuration(time.Since(started)),
			WithError(err),
			WithDetails(sync.LogDetails{"total": details.Total}),
		)
		return details, err
	}

	s.audit.Record(ctx, sync.OpBatchSummary, sync.LogStatusSuccess, correlationID,
		WithDuration(time.Since(started)),
		WithDetails(sync.LogDetails{
			"created": details.Created,
			"updated": details.Updated,
			"skipped": details.Skipped,
			"errors":  details.Errors,
			"total":   details.Total,
			"dry_run": dryRun,
		}),
	)
	return details, nil
}

// processOne handles one payload; per-record failures are counted, logged, and
// never abort the batch
func (s *CustomerSyncService) processOne(
	ctx context.Context,
	payload sync.CustomerPayload,
	correlationID string,
	details *sync.ReportDetails,
) {
	if !payload.HasIdentity() {
		s.audit.Record(ctx, sync.OpValidation, sync.LogStatusSkipped, correlationID,
			WithDetails(sync.LogDetails{"reason": "payload carries no identity keys"}),
		)
		details.Skipped++
		return
	}

	matched, _, err := s.resolver.Identify(ctx, payload, correlationID)
	if err != nil {
		details.Errors++
		return
	}

	if matched == nil {
		if err := s.createAccount(ctx, payload, correlationID); err != nil {
			details.Errors++
			return
		}
		details.Created++
		return
	}

	outcome, err := s.conflict.Resolve(ctx, matched, payload, sync.SourceDataImport, correlationID)
	if err != nil {
		details.Errors++
		return
	}
	if len(outcome.ConflictingFields) == 0 {
		details.Skipped++
		return
	}
	details.Updated++
}

// createAccount materializes a brand-new portal account from a 1C record
func (s *CustomerSyncService) createAccount(ctx context.Context, payload sync.CustomerPayload, correlationID string) error {
	started := time.Now()

	acct, err := account.NewCustomerAccount(payload.Email)
	if err != nil {
		// Malformed email on an otherwise identified record: keep the account,
		// drop the email
		acct, _ = account.NewCustomerAccount("")
	}
	acct.OnecID = payload.OnecID
	acct.TaxID = account.NormalizeTaxID(payload.TaxID)
	acct.FirstName = payload.FirstName
	acct.LastName = payload.LastName
	acct.Phone = payload.Phone
	acct.Company = payload.Company
	acct.StampSync(payload.OnecGUID, time.Now())

	if err := s.accounts.Save(ctx, acct); err != nil {
		s.audit.Record(ctx, sync.OpCreate, sync.LogStatusError, correlationID,
			WithOnecID(payload.OnecID),
			WithDuration(time.Since(started)),
			WithError(err),
		)
		return fmt.Errorf("failed to create account: %w", err)
	}

	s.audit.Record(ctx, sync.OpCreate, sync.LogStatusSuccess, correlationID,
		WithCustomer(acct.ID),
		WithOnecID(payload.OnecID),
		WithDuration(time.Since(started)),
		WithDetails(sync.LogDetails{"email": acct.Email}),
	)
	return nil
}
