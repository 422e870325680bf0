package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/sync"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormConflictRepository implements sync.ConflictRepository using GORM.
// Conflict rows are insert-only.
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// Save inserts a resolved conflict record
func (r *GormConflictRepository) Save(ctx context.Context, conflict *sync.SyncConflict) error {
	var model models.SyncConflictModel
	if err := model.FromDomain(conflict); err != nil {
		return err
	}
	return dbFrom(ctx, r.db).Create(&model).Error
}

// FindByCustomer returns the conflict history of one customer, most recent
// first
func (r *GormConflictRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*sync.SyncConflict, error) {
	var rows []models.SyncConflictModel
	err := dbFrom(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	conflicts := make([]*sync.SyncConflict, 0, len(rows))
	for i := range rows {
		conflict, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, nil
}

var _ sync.ConflictRepository = (*GormConflictRepository)(nil)
