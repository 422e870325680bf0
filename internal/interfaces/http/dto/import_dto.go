package dto

import (
	"time"

	"github.com/portal/backend/internal/domain/sync"
)

// LaunchImportRequest represents the request to launch one or more imports
type LaunchImportRequest struct {
	Types       []string `json:"types" binding:"required,min=1,dive,oneof=catalog variants attributes images stocks prices customers"`
	ArchiveName string   `json:"archive_name"`
}

// SessionResponse represents one import session
type SessionResponse struct {
	ID            string              `json:"id"`
	ImportType    string              `json:"import_type"`
	Status        string              `json:"status"`
	TaskID        string              `json:"task_id,omitempty"`
	ArchiveName   string              `json:"archive_name,omitempty"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	Report        string              `json:"report,omitempty"`
	ReportDetails *sync.ReportDetails `json:"report_details,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// FromSession converts a domain session to its API representation
func FromSession(s *sync.ImportSession) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID.String(),
		ImportType:  string(s.ImportType),
		Status:      string(s.Status),
		TaskID:      s.TaskID,
		ArchiveName: s.ArchiveName,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		Report:      s.Report,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.ErrorMessage != "" {
		resp.ErrorMessage = s.ErrorMessage
	}
	if s.ReportDetails.Total > 0 || s.ReportDetails.Errors > 0 {
		details := s.ReportDetails
		resp.ReportDetails = &details
	}
	return resp
}

// LaunchImportResponse wraps the sessions created by one launch call
type LaunchImportResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// ConflictResponse represents one resolved sync conflict
type ConflictResponse struct {
	ID                 string             `json:"id"`
	ConflictType       string             `json:"conflict_type"`
	CustomerID         string             `json:"customer_id,omitempty"`
	PlatformData       sync.FieldSnapshot `json:"platform_data"`
	OnecData           sync.FieldSnapshot `json:"onec_data"`
	ConflictingFields  []string           `json:"conflicting_fields"`
	ResolutionStrategy string             `json:"resolution_strategy"`
	ResolutionDetails  string             `json:"resolution_details,omitempty"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy         string             `json:"resolved_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// FromConflict converts a domain conflict to its API representation
func FromConflict(c *sync.SyncConflict) ConflictResponse {
	resp := ConflictResponse{
		ID:                 c.ID.String(),
		ConflictType:       string(c.ConflictType),
		PlatformData:       c.PlatformData,
		OnecData:           c.OnecData,
		ConflictingFields:  c.ConflictingFields,
		ResolutionStrategy: string(c.ResolutionStrategy),
		ResolutionDetails:  c.ResolutionDetails,
		ResolvedAt:         c.ResolvedAt,
		ResolvedBy:         c.ResolvedBy,
		CreatedAt:          c.CreatedAt,
	}
	if c.CustomerID != nil {
		resp.CustomerID = c.CustomerID.String()
	}
	return resp
}

// SyncLogResponse represents one audit log entry
type SyncLogResponse struct {
	ID            string          `json:"id"`
	OperationType string          `json:"operation_type"`
	Status        string          `json:"status"`
	CustomerID    string          `json:"customer_id,omitempty"`
	OnecID        string          `json:"onec_id,omitempty"`
	DurationMS    int64           `json:"duration_ms"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	Details       sync.LogDetails `json:"details,omitempty"`
	CorrelationID string          `json:"correlation_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// FromSyncLog converts a domain log entry to its API representation
func FromSyncLog(l *sync.CustomerSyncLog) SyncLogResponse {
	resp := SyncLogResponse{
		ID:            l.ID.String(),
		OperationType: string(l.OperationType),
		Status:        string(l.Status),
		OnecID:        l.OnecID,
		DurationMS:    l.DurationMS,
		ErrorMessage:  l.ErrorMessage,
		Details:       l.Details,
		CorrelationID: l.CorrelationID,
		CreatedAt:     l.CreatedAt,
	}
	if l.CustomerID != nil {
		resp.CustomerID = l.CustomerID.String()
	}
	return resp
}

// SummaryRowResponse represents one aggregated sync-log bucket
type SummaryRowResponse struct {
	OperationType string `json:"operation_type"`
	Status        string `json:"status"`
	Count         int64  `json:"count"`
}

// SummaryResponse wraps the sync-log summary for a reporting window
type SummaryResponse struct {
	From time.Time            `json:"from"`
	To   time.Time            `json:"to"`
	Rows []SummaryRowResponse `json:"rows"`
}

// UploadResponse is returned after a 1C exchange archive is stored
type UploadResponse struct {
	ArchiveName string `json:"archive_name"`
	Size        int64  `json:"size"`
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
