package persistence

import (
	"context"
	"errors"

	"github.com/portal/backend/internal/domain/account"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountRepository implements account.Repository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByOnecID finds an account by its 1C external id
func (r *GormAccountRepository) FindByOnecID(ctx context.Context, onecID string) (*account.CustomerAccount, error) {
	return r.findBy(ctx, "onec_id = ?", onecID)
}

// FindByOnecGUID finds an account by its 1C GUID
func (r *GormAccountRepository) FindByOnecGUID(ctx context.Context, onecGUID string) (*account.CustomerAccount, error) {
	return r.findBy(ctx, "onec_guid = ?", onecGUID)
}

// FindByTaxID finds an account by normalized tax id
func (r *GormAccountRepository) FindByTaxID(ctx context.Context, taxID string) (*account.CustomerAccount, error) {
	return r.findBy(ctx, "tax_id = ?", taxID)
}

// FindByEmail finds an account by normalized email
func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*account.CustomerAccount, error) {
	return r.findBy(ctx, "email = ?", email)
}

func (r *GormAccountRepository) findBy(ctx context.Context, query string, value string) (*account.CustomerAccount, error) {
	if value == "" {
		return nil, shared.ErrNotFound
	}
	var model models.CustomerAccountModel
	if err := dbFrom(ctx, r.db).Where(query, value).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists an account, inserting or updating by primary key
func (r *GormAccountRepository) Save(ctx context.Context, a *account.CustomerAccount) error {
	var model models.CustomerAccountModel
	model.FromDomain(a)
	return dbFrom(ctx, r.db).Save(&model).Error
}

var _ account.Repository = (*GormAccountRepository)(nil)
