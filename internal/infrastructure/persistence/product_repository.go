package persistence

import (
	"context"
	"errors"

	"github.com/portal/backend/internal/domain/catalog"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByOnecID finds a product by its 1C external id
func (r *GormProductRepository) FindByOnecID(ctx context.Context, onecID string) (*catalog.Product, error) {
	if onecID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.ProductModel
	if err := dbFrom(ctx, r.db).Where("onec_id = ?", onecID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsActive reports whether at least one active product exists
func (r *GormProductRepository) ExistsActive(ctx context.Context) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).
		Model(&models.ProductModel{}).
		Where("is_active = ?", true).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists a product, inserting or updating by primary key
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	var model models.ProductModel
	model.FromDomain(p)
	return dbFrom(ctx, r.db).Save(&model).Error
}

// SaveBatch upserts products in one statement keyed on the 1C id
func (r *GormProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	batch := make([]models.ProductModel, len(products))
	for i, p := range products {
		batch[i].FromDomain(p)
	}
	return dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "onec_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"onec_guid", "name", "article", "retail_price", "wholesale_price",
				"stock_quantity", "image_path", "is_active", "updated_at",
			}),
		}).
		CreateInBatches(batch, 200).Error
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
