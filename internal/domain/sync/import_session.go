package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/portal/backend/internal/domain/shared"
)

// ImportType represents the kind of data an import session carries
type ImportType string

const (
	ImportTypeCatalog    ImportType = "catalog"
	ImportTypeVariants   ImportType = "variants"
	ImportTypeAttributes ImportType = "attributes"
	ImportTypeImages     ImportType = "images"
	ImportTypeStocks     ImportType = "stocks"
	ImportTypePrices     ImportType = "prices"
	ImportTypeCustomers  ImportType = "customers"
)

// IsValid checks if the import type is valid
func (t ImportType) IsValid() bool {
	switch t {
	case ImportTypeCatalog, ImportTypeVariants, ImportTypeAttributes,
		ImportTypeImages, ImportTypeStocks, ImportTypePrices, ImportTypeCustomers:
		return true
	}
	return false
}

// RequiresCatalog reports whether the import type can only run against a
// non-empty product catalog
func (t ImportType) RequiresCatalog() bool {
	switch t {
	case ImportTypeStocks, ImportTypePrices, ImportTypeImages:
		return true
	}
	return false
}

// SessionStatus represents the lifecycle state of an import session
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusStarted    SessionStatus = "started"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// IsValid checks if the status is valid
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusStarted, SessionStatusInProgress,
		SessionStatusCompleted, SessionStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// StaleSessionError is the sentinel message written by the reaper when it
// force-fails a hung session
const StaleSessionError = "import session stale: no worker heartbeat within timeout"

// TimeLimitError marks sessions killed by the worker's soft execution limit
const TimeLimitError = "import aborted: soft time limit exceeded"

// ReportDetails holds the structured outcome counters of one import run
type ReportDetails struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}

// ImportSession tracks one import run from dispatch to terminal state.
// Terminal transitions are idempotent: once completed or failed, every further
// transition attempt is a silent no-op so a late worker can never reopen or
// overwrite a finished run.
type ImportSession struct {
	shared.BaseEntity
	ImportType    ImportType
	Status        SessionStatus
	TaskID        string
	ArchiveName   string
	StartedAt     *time.Time
	FinishedAt    *time.Time
	Report        string
	ReportDetails ReportDetails
	ErrorMessage  string
}

// NewImportSession creates a pending session for the given import type
func NewImportSession(importType ImportType) (*ImportSession, error) {
	if !importType.IsValid() {
		return nil, shared.NewDomainError("INVALID_IMPORT_TYPE", fmt.Sprintf("Invalid import type: %s", importType))
	}
	return &ImportSession{
		BaseEntity: shared.NewBaseEntity(),
		ImportType: importType,
		Status:     SessionStatusPending,
	}, nil
}

// Start marks the session as queued and records the dispatched task id.
// No-op when the session is already terminal.
func (s *ImportSession) Start(taskID string) {
	if s.Status.IsTerminal() {
		return
	}
	now := time.Now()
	s.Status = SessionStatusStarted
	s.TaskID = taskID
	s.StartedAt = &now
	s.Touch()
}

// Begin is called by the worker when it picks the session up.
// No-op when the session is already terminal.
func (s *ImportSession) Begin() {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = SessionStatusInProgress
	s.Touch()
}

// Complete finalizes the session successfully. No-op on terminal sessions.
func (s *ImportSession) Complete(details ReportDetails) {
	if s.Status.IsTerminal() {
		return
	}
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.ReportDetails = details
	s.FinishedAt = &now
	s.Touch()
}

// Fail finalizes the session with an error. No-op on terminal sessions.
func (s *ImportSession) Fail(message string) {
	if s.Status.IsTerminal() {
		return
	}
	now := time.Now()
	s.Status = SessionStatusFailed
	s.ErrorMessage = message
	s.FinishedAt = &now
	s.Touch()
}

// AppendReport adds a timestamped line to the free-text progress log
func (s *ImportSession) AppendReport(line string) {
	stamp := time.Now().Format("2006-01-02 15:04:05")
	if s.Report != "" {
		s.Report += "\n"
	}
	s.Report += stamp + " " + line
	s.Touch()
}

// IsStale reports whether an in-progress session has gone without updates
// longer than the given threshold
func (s *ImportSession) IsStale(threshold time.Duration, now time.Time) bool {
	return s.Status == SessionStatusInProgress && now.Sub(s.UpdatedAt) > threshold
}

// ReportDetailsJSON returns the structured counters as a JSON string
func (s *ImportSession) ReportDetailsJSON() (string, error) {
	data, err := json.Marshal(s.ReportDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report details: %w", err)
	}
	return string(data), nil
}

// SetReportDetailsFromJSON parses structured counters from a JSON string
func (s *ImportSession) SetReportDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" {
		s.ReportDetails = ReportDetails{}
		return nil
	}
	var details ReportDetails
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal report details: %w", err)
	}
	s.ReportDetails = details
	return nil
}
