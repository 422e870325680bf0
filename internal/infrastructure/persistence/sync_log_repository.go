package persistence

import (
	"context"
	"time"

	"github.com/portal/backend/internal/domain/sync"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements sync.LogRepository using GORM. Entries are
// append-only; the retention sweep is the only deletion path and updates do
// not exist.
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append inserts one audit entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *sync.CustomerSyncLog) error {
	var model models.CustomerSyncLogModel
	if err := model.FromDomain(entry); err != nil {
		return err
	}
	return dbFrom(ctx, r.db).Create(&model).Error
}

// FindByCorrelation returns all entries of one operation chain in insertion
// order
func (r *GormSyncLogRepository) FindByCorrelation(ctx context.Context, correlationID string) ([]*sync.CustomerSyncLog, error) {
	var rows []models.CustomerSyncLogModel
	err := dbFrom(ctx, r.db).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*sync.CustomerSyncLog, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Summarize aggregates entry counts by operation and status over a period
func (r *GormSyncLogRepository) Summarize(ctx context.Context, period sync.SummaryPeriod) ([]sync.SummaryRow, error) {
	var rows []sync.SummaryRow
	err := dbFrom(ctx, r.db).
		Model(&models.CustomerSyncLogModel{}).
		Select("operation_type, status, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ?", period.From, period.To).
		Group("operation_type, status").
		Order("operation_type, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan removes entries created before the cutoff and reports how
// many rows went away
func (r *GormSyncLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := dbFrom(ctx, r.db).
		Where("created_at < ?", cutoff).
		Delete(&models.CustomerSyncLogModel{})
	return result.RowsAffected, result.Error
}

var _ sync.LogRepository = (*GormSyncLogRepository)(nil)
