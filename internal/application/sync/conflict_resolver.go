package syncapp

import (
	"context"
	"fmt"
	"time"

	"github.com/portal/backend/internal/domain/account"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Notifier delivers best-effort operator notifications. Implementations must
// not be relied on for correctness: a failed Notify never affects the outcome
// of the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, body string) error
}

// Outcome tags returned by Resolve
const (
	OutcomeVerifiedClient = "verified_client"
	OutcomeDataUpdated    = "data_updated"
)

// Outcome describes what Resolve did
type Outcome struct {
	Tag               string
	ConflictingFields []string
	ChangesMade       map[string]string
	Conflict          *sync.SyncConflict
}

// comparableField describes one account field the resolver diffs and, when 1C
// wins, overwrites. Incoming empty values never count as conflicts.
type comparableField struct {
	name      string
	current   func(*account.CustomerAccount) string
	incoming  func(sync.CustomerPayload) string
	apply     func(*account.CustomerAccount, string)
	normalize func(string) string
}

func comparableFields() []comparableField {
	identity := func(v string) string { return v }
	return []comparableField{
		{
			name:      "email",
			current:   func(a *account.CustomerAccount) string { return a.Email },
			incoming:  func(p sync.CustomerPayload) string { return p.Email },
			apply:     func(a *account.CustomerAccount, v string) { a.Email = v },
			normalize: account.NormalizeEmail,
		},
		{
			name:      "first_name",
			current:   func(a *account.CustomerAccount) string { return a.FirstName },
			incoming:  func(p sync.CustomerPayload) string { return p.FirstName },
			apply:     func(a *account.CustomerAccount, v string) { a.FirstName = v },
			normalize: identity,
		},
		{
			name:      "last_name",
			current:   func(a *account.CustomerAccount) string { return a.LastName },
			incoming:  func(p sync.CustomerPayload) string { return p.LastName },
			apply:     func(a *account.CustomerAccount, v string) { a.LastName = v },
			normalize: identity,
		},
		{
			name:      "phone",
			current:   func(a *account.CustomerAccount) string { return a.Phone },
			incoming:  func(p sync.CustomerPayload) string { return p.Phone },
			apply:     func(a *account.CustomerAccount, v string) { a.Phone = v },
			normalize: identity,
		},
		{
			name:      "company",
			current:   func(a *account.CustomerAccount) string { return a.Company },
			incoming:  func(p sync.CustomerPayload) string { return p.Company },
			apply:     func(a *account.CustomerAccount, v string) { a.Company = v },
			normalize: identity,
		},
		{
			name:      "tax_id",
			current:   func(a *account.CustomerAccount) string { return a.TaxID },
			incoming:  func(p sync.CustomerPayload) string { return p.TaxID },
			apply:     func(a *account.CustomerAccount, v string) { a.TaxID = v },
			normalize: account.NormalizeTaxID,
		},
	}
}

// ConflictResolver applies a source-specific strategy when a matched account
// and an incoming payload disagree, persists the immutable conflict record,
// and emits the audit trail under the caller's correlation id.
type ConflictResolver struct {
	accounts   account.Repository
	conflicts  sync.ConflictRepository
	audit      *AuditLogger
	notifier   Notifier
	recipients []string
	logger     *zap.Logger
}

// NewConflictResolver creates a new ConflictResolver
func NewConflictResolver(
	accounts account.Repository,
	conflicts sync.ConflictRepository,
	audit *AuditLogger,
	notifier Notifier,
	recipients []string,
	logger *zap.Logger,
) *ConflictResolver {
	return &ConflictResolver{
		accounts:   accounts,
		conflicts:  conflicts,
		audit:      audit,
		notifier:   notifier,
		recipients: recipients,
		logger:     logger,
	}
}

// Resolve diffs the account against the payload and applies the strategy for
// the given source. Unknown sources are programmer errors and fail
// immediately. When the diff is empty under data_import, nothing is written:
// no field update, no conflict record.
func (r *ConflictResolver) Resolve(
	ctx context.Context,
	acct *account.CustomerAccount,
	payload sync.CustomerPayload,
	source sync.ConflictSource,
	correlationID string,
) (*Outcome, error) {
	if !source.IsValid() {
		return nil, shared.ErrUnknownConflictSource
	}

	started := time.Now()
	fields := comparableFields()
	platformData := snapshot(acct, fields)
	onecData := payloadSnapshot(payload, fields)
	conflicting := diff(acct, payload, fields)

	var outcome *Outcome
	var err error
	switch source {
	case sync.SourcePortalRegistration:
		outcome, err = r.resolveRegistration(ctx, acct, payload, platformData, onecData, conflicting)
	case sync.SourceDataImport:
		outcome, err = r.resolveDataImport(ctx, acct, payload, platformData, onecData, conflicting)
	}
	if err != nil {
		r.audit.Record(ctx, sync.OpConflictResolution, sync.LogStatusError, correlationID,
			WithCustomer(acct.ID),
			WithOnecID(payload.OnecID),
			WithDuration(time.Since(started)),
			WithError(err),
			WithDetails(sync.LogDetails{"source": string(source)}),
		)
		return nil, err
	}

	if source == sync.SourceDataImport && outcome.Conflict != nil {
		r.notifyDataUpdated(ctx, acct, outcome, correlationID)
	}

	r.audit.Record(ctx, sync.OpConflictResolution, sync.LogStatusSuccess, correlationID,
		WithCustomer(acct.ID),
		WithOnecID(payload.OnecID),
		WithDuration(time.Since(started)),
		WithDetails(sync.LogDetails{
			"source":             string(source),
			"outcome":            outcome.Tag,
			"conflicting_fields": outcome.ConflictingFields,
			"changes_made":       outcome.ChangesMade,
		}),
	)
	return outcome, nil
}

// resolveRegistration handles a portal self-registration colliding with an
// existing 1C-sourced account: the registrant proves ownership of the email,
// so the account adopts their password and is marked verified. Profile fields
// stay exactly as 1C delivered them.
func (r *ConflictResolver) resolveRegistration(
	ctx context.Context,
	acct *account.CustomerAccount,
	payload sync.CustomerPayload,
	platformData, onecData sync.FieldSnapshot,
	conflicting []string,
) (*Outcome, error) {
	if payload.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash registrant password: %w", err)
		}
		acct.SetPasswordHash(string(hash))
	}
	acct.MarkVerified()

	if err := r.accounts.Save(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to save verified account: %w", err)
	}

	conflict, err := sync.NewResolvedConflict(
		sync.ConflictTypeRegistrationBlocked,
		platformData,
		onecData,
		conflicting,
		"registration against existing 1C account: password adopted, account verified",
		"system",
	)
	if err != nil {
		return nil, err
	}
	conflict.CustomerID = &acct.ID
	if err := r.conflicts.Save(ctx, conflict); err != nil {
		return nil, fmt.Errorf("failed to save conflict record: %w", err)
	}

	return &Outcome{
		Tag:               OutcomeVerifiedClient,
		ConflictingFields: conflicting,
		ChangesMade:       map[string]string{},
		Conflict:          conflict,
	}, nil
}

// resolveDataImport applies the onec_wins strategy: 1C overwrites every
// conflicting field and the sync metadata is stamped. An empty diff writes
// nothing at all.
func (r *ConflictResolver) resolveDataImport(
	ctx context.Context,
	acct *account.CustomerAccount,
	payload sync.CustomerPayload,
	platformData, onecData sync.FieldSnapshot,
	conflicting []string,
) (*Outcome, error) {
	if len(conflicting) == 0 {
		return &Outcome{
			Tag:               OutcomeDataUpdated,
			ConflictingFields: nil,
			ChangesMade:       map[string]string{},
		}, nil
	}

	changes := make(map[string]string, len(conflicting))
	conflictSet := make(map[string]bool, len(conflicting))
	for _, name := range conflicting {
		conflictSet[name] = true
	}
	for _, f := range comparableFields() {
		if !conflictSet[f.name] {
			continue
		}
		value := f.normalize(f.incoming(payload))
		f.apply(acct, value)
		changes[f.name] = value
	}
	acct.StampSync(payload.OnecGUID, time.Now())

	if err := r.accounts.Save(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to save updated account: %w", err)
	}

	conflict, err := sync.NewResolvedConflict(
		sync.ConflictTypeCustomerData,
		platformData,
		onecData,
		conflicting,
		fmt.Sprintf("1C data applied to %d field(s)", len(conflicting)),
		"system",
	)
	if err != nil {
		return nil, err
	}
	conflict.CustomerID = &acct.ID
	if err := r.conflicts.Save(ctx, conflict); err != nil {
		return nil, fmt.Errorf("failed to save conflict record: %w", err)
	}

	return &Outcome{
		Tag:               OutcomeDataUpdated,
		ConflictingFields: conflicting,
		ChangesMade:       changes,
		Conflict:          conflict,
	}, nil
}

// notifyDataUpdated tells operators an account was rewritten by 1C. Failures
// are logged as their own audit record and never propagate: the data changes
// and the conflict record are already committed.
func (r *ConflictResolver) notifyDataUpdated(ctx context.Context, acct *account.CustomerAccount, outcome *Outcome, correlationID string) {
	if r.notifier == nil || len(r.recipients) == 0 {
		return
	}
	subject := "1C sync updated customer data"
	body := fmt.Sprintf("Account %s (%s): fields %v overwritten by 1C import",
		acct.ID, acct.Email, outcome.ConflictingFields)
	if err := r.notifier.Notify(ctx, r.recipients, subject, body); err != nil {
		r.logger.Warn("Conflict notification failed",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err),
		)
		r.audit.Record(ctx, sync.OpNotificationFailed, sync.LogStatusWarning, correlationID,
			WithCustomer(acct.ID),
			WithError(err),
			WithDetails(sync.LogDetails{"recipients": r.recipients}),
		)
	}
}

// diff returns the names of fields whose non-empty incoming value differs from
// the account's current value
func diff(acct *account.CustomerAccount, payload sync.CustomerPayload, fields []comparableField) []string {
	var conflicting []string
	for _, f := range fields {
		raw := f.incoming(payload)
		if raw == "" {
			continue
		}
		value := f.normalize(raw)
		if value == "" {
			continue
		}
		if value != f.current(acct) {
			conflicting = append(conflicting, f.name)
		}
	}
	return conflicting
}

func snapshot(acct *account.CustomerAccount, fields []comparableField) sync.FieldSnapshot {
	snap := make(sync.FieldSnapshot, len(fields))
	for _, f := range fields {
		snap[f.name] = f.current(acct)
	}
	return snap
}

func payloadSnapshot(payload sync.CustomerPayload, fields []comparableField) sync.FieldSnapshot {
	snap := make(sync.FieldSnapshot, len(fields))
	for _, f := range fields {
		snap[f.name] = f.incoming(payload)
	}
	return snap
}
