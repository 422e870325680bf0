package models

import (
	"time"

	"github.com/portal/backend/internal/domain/account"
)

// CustomerAccountModel maps customer accounts to the database. Identity
// columns are unique only when non-empty; the partial indexes carry the
// invariant the identity cascade depends on.
type CustomerAccountModel struct {
	BaseModel
	OnecID         string `gorm:"type:varchar(50);uniqueIndex:idx_accounts_onec_id,where:onec_id <> ''"`
	OnecGUID       string `gorm:"type:varchar(64);uniqueIndex:idx_accounts_onec_guid,where:onec_guid <> ''"`
	TaxID          string `gorm:"type:varchar(12);index"`
	Email          string `gorm:"type:varchar(254);uniqueIndex:idx_accounts_email,where:email <> ''"`
	FirstName      string `gorm:"type:varchar(150)"`
	LastName       string `gorm:"type:varchar(150)"`
	Phone          string `gorm:"type:varchar(50)"`
	Company        string `gorm:"type:varchar(255)"`
	PasswordHash   string `gorm:"type:varchar(128)"`
	IsVerified     bool   `gorm:"not null;default:false"`
	LastSyncFrom1C *time.Time
}

// TableName returns the table name for GORM
func (CustomerAccountModel) TableName() string {
	return "customer_accounts"
}

// ToDomain converts the model to a domain CustomerAccount
func (m *CustomerAccountModel) ToDomain() *account.CustomerAccount {
	return &account.CustomerAccount{
		BaseEntity:     m.BaseModel.ToDomain(),
		OnecID:         m.OnecID,
		OnecGUID:       m.OnecGUID,
		TaxID:          m.TaxID,
		Email:          m.Email,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Phone:          m.Phone,
		Company:        m.Company,
		PasswordHash:   m.PasswordHash,
		IsVerified:     m.IsVerified,
		LastSyncFrom1C: m.LastSyncFrom1C,
	}
}

// FromDomain populates the model from a domain CustomerAccount
func (m *CustomerAccountModel) FromDomain(a *account.CustomerAccount) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.OnecID = a.OnecID
	m.OnecGUID = a.OnecGUID
	m.TaxID = a.TaxID
	m.Email = a.Email
	m.FirstName = a.FirstName
	m.LastName = a.LastName
	m.Phone = a.Phone
	m.Company = a.Company
	m.PasswordHash = a.PasswordHash
	m.IsVerified = a.IsVerified
	m.LastSyncFrom1C = a.LastSyncFrom1C
}
