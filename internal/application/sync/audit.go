package syncapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// AuditLogger writes correlated CustomerSyncLog records. Every entry carries
// the correlation id of the logical chain it belongs to; the id is always
// passed in explicitly, never kept in logger state.
type AuditLogger struct {
	logs   sync.LogRepository
	logger *zap.Logger
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(logs sync.LogRepository, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logs: logs, logger: logger}
}

// NewCorrelationID generates a fresh correlation id for a new operation chain
func NewCorrelationID() string {
	return uuid.NewString()
}

// EntryOption customizes one audit entry
type EntryOption func(*sync.CustomerSyncLog)

// WithCustomer attaches the matched account id
func WithCustomer(id uuid.UUID) EntryOption {
	return func(l *sync.CustomerSyncLog) {
		l.CustomerID = &id
	}
}

// WithOnecID attaches the 1C identifier the operation worked with
func WithOnecID(onecID string) EntryOption {
	return func(l *sync.CustomerSyncLog) {
		l.OnecID = onecID
	}
}

// WithDuration records how long the operation took
func WithDuration(d time.Duration) EntryOption {
	return func(l *sync.CustomerSyncLog) {
		l.DurationMS = d.Milliseconds()
	}
}

// WithError records the failure message
func WithError(err error) EntryOption {
	return func(l *sync.CustomerSyncLog) {
		if err != nil {
			l.ErrorMessage = err.Error()
		}
	}
}

// WithDetails merges structured context into the entry
func WithDetails(details sync.LogDetails) EntryOption {
	return func(l *sync.CustomerSyncLog) {
		for k, v := range details {
			l.Details[k] = v
		}
	}
}

// Record appends one audit entry. Persistence failures are logged and
// swallowed: the audit trail is best-effort from the caller's perspective and
// must never abort the business operation it describes.
func (a *AuditLogger) Record(
	ctx context.Context,
	op sync.OperationType,
	status sync.LogStatus,
	correlationID string,
	opts ...EntryOption,
) *sync.CustomerSyncLog {
	entry, err := sync.NewSyncLog(op, status, correlationID)
	if err != nil {
		a.logger.Error("Refused to build audit entry",
			zap.String("operation", string(op)),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil
	}

	for _, opt := range opts {
		opt(entry)
	}

	if err := a.logs.Append(ctx, entry); err != nil {
		a.logger.Error("Failed to append audit entry",
			zap.String("operation", string(op)),
			zap.String("status", string(status)),
			zap.String("correlation_id", entry.CorrelationID),
			zap.Error(err),
		)
		return entry
	}

	a.logger.Debug("Audit entry recorded",
		zap.String("operation", string(op)),
		zap.String("status", string(status)),
		zap.String("correlation_id", entry.CorrelationID),
	)
	return entry
}

// Chain retrieves all entries sharing a correlation id, oldest first
func (a *AuditLogger) Chain(ctx context.Context, correlationID string) ([]*sync.CustomerSyncLog, error) {
	return a.logs.FindByCorrelation(ctx, correlationID)
}

// Summarize aggregates log counts per operation and status over a window
func (a *AuditLogger) Summarize(ctx context.Context, from, to time.Time) ([]sync.SummaryRow, error) {
	return a.logs.Summarize(ctx, sync.SummaryPeriod{From: from, To: to})
}
