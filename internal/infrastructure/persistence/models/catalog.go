package models

import (
	"github.com/portal/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel maps catalog products to the database
type ProductModel struct {
	BaseModel
	OnecID         string          `gorm:"type:varchar(50);uniqueIndex"`
	OnecGUID       string          `gorm:"type:varchar(64);index"`
	Name           string          `gorm:"type:varchar(500);not null"`
	Article        string          `gorm:"type:varchar(100);index"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	StockQuantity  int             `gorm:"not null;default:0"`
	ImagePath      string          `gorm:"type:varchar(500)"`
	IsActive       bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:     m.BaseModel.ToDomain(),
		OnecID:         m.OnecID,
		OnecGUID:       m.OnecGUID,
		Name:           m.Name,
		Article:        m.Article,
		RetailPrice:    m.RetailPrice,
		WholesalePrice: m.WholesalePrice,
		StockQuantity:  m.StockQuantity,
		ImagePath:      m.ImagePath,
		IsActive:       m.IsActive,
	}
}

// FromDomain populates the model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.OnecID = p.OnecID
	m.OnecGUID = p.OnecGUID
	m.Name = p.Name
	m.Article = p.Article
	m.RetailPrice = p.RetailPrice
	m.WholesalePrice = p.WholesalePrice
	m.StockQuantity = p.StockQuantity
	m.ImagePath = p.ImagePath
	m.IsActive = p.IsActive
}
