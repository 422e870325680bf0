package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSessionRepository implements sync.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID finds a session by its id
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.ImportSession, error) {
	var model models.ImportSessionModel
	if err := dbFrom(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindStartedByType returns the most recent still-queued session of a type
func (r *GormSessionRepository) FindStartedByType(ctx context.Context, importType sync.ImportType) (*sync.ImportSession, error) {
	var model models.ImportSessionModel
	err := dbFrom(ctx, r.db).
		Where("import_type = ? AND status = ?", string(importType), string(sync.SessionStatusStarted)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindStale returns in_progress sessions untouched since before the cutoff
func (r *GormSessionRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*sync.ImportSession, error) {
	var rows []models.ImportSessionModel
	err := dbFrom(ctx, r.db).
		Where("status = ? AND updated_at < ?", string(sync.SessionStatusInProgress), cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sessions := make([]*sync.ImportSession, 0, len(rows))
	for i := range rows {
		session, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Save persists a session, inserting or updating by primary key
func (r *GormSessionRepository) Save(ctx context.Context, session *sync.ImportSession) error {
	var model models.ImportSessionModel
	if err := model.FromDomain(session); err != nil {
		return err
	}
	return dbFrom(ctx, r.db).Save(&model).Error
}

// FinalizeIfActive persists the session's terminal state with a conditional
// update, so a row another writer already finished is never overwritten
func (r *GormSessionRepository) FinalizeIfActive(ctx context.Context, session *sync.ImportSession) (bool, error) {
	var model models.ImportSessionModel
	if err := model.FromDomain(session); err != nil {
		return false, err
	}
	result := dbFrom(ctx, r.db).
		Model(&models.ImportSessionModel{}).
		Where("id = ? AND status NOT IN ?", model.ID,
			[]string{string(sync.SessionStatusCompleted), string(sync.SessionStatusFailed)}).
		Updates(map[string]any{
			"status":         model.Status,
			"finished_at":    model.FinishedAt,
			"report":         model.Report,
			"report_details": model.ReportDetails,
			"error_message":  model.ErrorMessage,
			"updated_at":     model.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var _ sync.SessionRepository = (*GormSessionRepository)(nil)
