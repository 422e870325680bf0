package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
)

// OperationType names one atomic sync operation in the audit trail
type OperationType string

const (
	OpIdentification      OperationType = "identification"
	OpCreate              OperationType = "create"
	OpUpdate              OperationType = "update"
	OpExport              OperationType = "export"
	OpConflictResolution  OperationType = "conflict_resolution"
	OpBatchSummary        OperationType = "batch_summary"
	OpValidation          OperationType = "validation"
	OpNotificationFailed  OperationType = "notification_failed"
)

// IsValid checks if the operation type is valid
func (t OperationType) IsValid() bool {
	switch t {
	case OpIdentification, OpCreate, OpUpdate, OpExport,
		OpConflictResolution, OpBatchSummary, OpValidation, OpNotificationFailed:
		return true
	}
	return false
}

// LogStatus is the outcome of one logged operation
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
	LogStatusWarning LogStatus = "warning"
	LogStatusSkipped LogStatus = "skipped"
	LogStatusFailed  LogStatus = "failed"
)

// IsValid checks if the status is valid
func (s LogStatus) IsValid() bool {
	switch s {
	case LogStatusSuccess, LogStatusError, LogStatusWarning, LogStatusSkipped, LogStatusFailed:
		return true
	}
	return false
}

// LogDetails holds free-form structured context attached to one audit entry
type LogDetails map[string]any

// CustomerSyncLog is one append-only audit record. Entries sharing a
// correlation id belong to the same logical operation chain. Rows are never
// updated; the only deletion path is the time-based retention sweep.
type CustomerSyncLog struct {
	shared.BaseEntity
	OperationType OperationType
	Status        LogStatus
	CustomerID    *uuid.UUID
	OnecID        string
	DurationMS    int64
	ErrorMessage  string
	Details       LogDetails
	CorrelationID string
}

// NewSyncLog creates one audit entry
func NewSyncLog(op OperationType, status LogStatus, correlationID string) (*CustomerSyncLog, error) {
	if !op.IsValid() {
		return nil, shared.NewDomainError("INVALID_OPERATION_TYPE", fmt.Sprintf("Invalid operation type: %s", op))
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOG_STATUS", fmt.Sprintf("Invalid log status: %s", status))
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &CustomerSyncLog{
		BaseEntity:    shared.NewBaseEntity(),
		OperationType: op,
		Status:        status,
		CorrelationID: correlationID,
		Details:       LogDetails{},
	}, nil
}

// DetailsJSON serializes the structured details for persistence
func (l *CustomerSyncLog) DetailsJSON() (string, error) {
	if len(l.Details) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(l.Details)
	if err != nil {
		return "", fmt.Errorf("failed to marshal log details: %w", err)
	}
	return string(data), nil
}

// SetDetailsFromJSON parses structured details from their stored form
func (l *CustomerSyncLog) SetDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "{}" {
		l.Details = LogDetails{}
		return nil
	}
	var details LogDetails
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal log details: %w", err)
	}
	l.Details = details
	return nil
}

// SummaryRow is one aggregated line of the reporting query
type SummaryRow struct {
	OperationType OperationType
	Status        LogStatus
	Count         int64
}

// SummaryPeriod bounds a reporting window
type SummaryPeriod struct {
	From time.Time
	To   time.Time
}
