package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/sync"
)

// ImportSessionModel maps import sessions to the database. Structured report
// counters are stored as a JSON column.
type ImportSessionModel struct {
	BaseModel
	ImportType    string `gorm:"type:varchar(20);not null;index"`
	Status        string `gorm:"type:varchar(20);not null;default:'pending';index"`
	TaskID        string `gorm:"type:varchar(64);index"`
	ArchiveName   string `gorm:"type:varchar(255)"`
	StartedAt     *time.Time
	FinishedAt    *time.Time
	Report        string `gorm:"type:text"`
	ReportDetails string `gorm:"type:text"`
	ErrorMessage  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ImportSessionModel) TableName() string {
	return "import_sessions"
}

// ToDomain converts the model to a domain ImportSession
func (m *ImportSessionModel) ToDomain() (*sync.ImportSession, error) {
	session := &sync.ImportSession{
		BaseEntity:   m.BaseModel.ToDomain(),
		ImportType:   sync.ImportType(m.ImportType),
		Status:       sync.SessionStatus(m.Status),
		TaskID:       m.TaskID,
		ArchiveName:  m.ArchiveName,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		Report:       m.Report,
		ErrorMessage: m.ErrorMessage,
	}
	if err := session.SetReportDetailsFromJSON(m.ReportDetails); err != nil {
		return nil, fmt.Errorf("session %s: %w", m.ID, err)
	}
	return session, nil
}

// FromDomain populates the model from a domain ImportSession
func (m *ImportSessionModel) FromDomain(s *sync.ImportSession) error {
	details, err := s.ReportDetailsJSON()
	if err != nil {
		return err
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	m.ImportType = string(s.ImportType)
	m.Status = string(s.Status)
	m.TaskID = s.TaskID
	m.ArchiveName = s.ArchiveName
	m.StartedAt = s.StartedAt
	m.FinishedAt = s.FinishedAt
	m.Report = s.Report
	m.ReportDetails = details
	m.ErrorMessage = s.ErrorMessage
	return nil
}

// SyncConflictModel maps resolved sync conflicts to the database. Field
// snapshots and the conflicting field list are stored as JSON columns; rows
// are written once and never updated.
type SyncConflictModel struct {
	BaseModel
	ConflictType       string     `gorm:"type:varchar(40);not null;index"`
	CustomerID         *uuid.UUID `gorm:"type:uuid;index"`
	PlatformData       string     `gorm:"type:text"`
	OnecData           string     `gorm:"type:text"`
	ConflictingFields  string     `gorm:"type:text"`
	ResolutionStrategy string     `gorm:"type:varchar(20);not null;default:'onec_wins'"`
	IsResolved         bool       `gorm:"not null;default:false"`
	ResolutionDetails  string     `gorm:"type:text"`
	ResolvedAt         *time.Time
	ResolvedBy         string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (SyncConflictModel) TableName() string {
	return "sync_conflicts"
}

// ToDomain converts the model to a domain SyncConflict
func (m *SyncConflictModel) ToDomain() (*sync.SyncConflict, error) {
	platform, err := sync.SnapshotFromJSON(m.PlatformData)
	if err != nil {
		return nil, fmt.Errorf("conflict %s platform data: %w", m.ID, err)
	}
	onec, err := sync.SnapshotFromJSON(m.OnecData)
	if err != nil {
		return nil, fmt.Errorf("conflict %s 1c data: %w", m.ID, err)
	}
	var fields []string
	if m.ConflictingFields != "" {
		if err := json.Unmarshal([]byte(m.ConflictingFields), &fields); err != nil {
			return nil, fmt.Errorf("conflict %s fields: %w", m.ID, err)
		}
	}
	return &sync.SyncConflict{
		BaseEntity:         m.BaseModel.ToDomain(),
		ConflictType:       sync.ConflictType(m.ConflictType),
		CustomerID:         m.CustomerID,
		PlatformData:       platform,
		OnecData:           onec,
		ConflictingFields:  fields,
		ResolutionStrategy: sync.ResolutionStrategy(m.ResolutionStrategy),
		IsResolved:         m.IsResolved,
		ResolutionDetails:  m.ResolutionDetails,
		ResolvedAt:         m.ResolvedAt,
		ResolvedBy:         m.ResolvedBy,
	}, nil
}

// FromDomain populates the model from a domain SyncConflict
func (m *SyncConflictModel) FromDomain(c *sync.SyncConflict) error {
	platform, err := sync.SnapshotJSON(c.PlatformData)
	if err != nil {
		return err
	}
	onec, err := sync.SnapshotJSON(c.OnecData)
	if err != nil {
		return err
	}
	fields, err := json.Marshal(c.ConflictingFields)
	if err != nil {
		return fmt.Errorf("failed to marshal conflicting fields: %w", err)
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ConflictType = string(c.ConflictType)
	m.CustomerID = c.CustomerID
	m.PlatformData = platform
	m.OnecData = onec
	m.ConflictingFields = string(fields)
	m.ResolutionStrategy = string(c.ResolutionStrategy)
	m.IsResolved = c.IsResolved
	m.ResolutionDetails = c.ResolutionDetails
	m.ResolvedAt = c.ResolvedAt
	m.ResolvedBy = c.ResolvedBy
	return nil
}

// CustomerSyncLogModel maps append-only audit entries to the database
type CustomerSyncLogModel struct {
	BaseModel
	OperationType string     `gorm:"type:varchar(30);not null;index"`
	Status        string     `gorm:"type:varchar(10);not null;index"`
	CustomerID    *uuid.UUID `gorm:"type:uuid;index"`
	OnecID        string     `gorm:"type:varchar(50);index"`
	DurationMS    int64      `gorm:"not null;default:0"`
	ErrorMessage  string     `gorm:"type:text"`
	Details       string     `gorm:"type:text"`
	CorrelationID string     `gorm:"type:varchar(64);not null;index"`
}

// TableName returns the table name for GORM
func (CustomerSyncLogModel) TableName() string {
	return "customer_sync_logs"
}

// ToDomain converts the model to a domain CustomerSyncLog
func (m *CustomerSyncLogModel) ToDomain() (*sync.CustomerSyncLog, error) {
	entry := &sync.CustomerSyncLog{
		BaseEntity:    m.BaseModel.ToDomain(),
		OperationType: sync.OperationType(m.OperationType),
		Status:        sync.LogStatus(m.Status),
		CustomerID:    m.CustomerID,
		OnecID:        m.OnecID,
		DurationMS:    m.DurationMS,
		ErrorMessage:  m.ErrorMessage,
		CorrelationID: m.CorrelationID,
	}
	if err := entry.SetDetailsFromJSON(m.Details); err != nil {
		return nil, fmt.Errorf("sync log %s: %w", m.ID, err)
	}
	return entry, nil
}

// FromDomain populates the model from a domain CustomerSyncLog
func (m *CustomerSyncLogModel) FromDomain(l *sync.CustomerSyncLog) error {
	details, err := l.DetailsJSON()
	if err != nil {
		return err
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	m.OperationType = string(l.OperationType)
	m.Status = string(l.Status)
	m.CustomerID = l.CustomerID
	m.OnecID = l.OnecID
	m.DurationMS = l.DurationMS
	m.ErrorMessage = l.ErrorMessage
	m.Details = details
	m.CorrelationID = l.CorrelationID
	return nil
}
