package catalog

import (
	"github.com/portal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the minimal catalog read model the sync engine operates on.
// Catalog imports create and update rows; stock and price imports only amend
// quantities and price columns of products that already exist.
type Product struct {
	shared.BaseEntity
	OnecID         string
	OnecGUID       string
	Name           string
	Article        string
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	StockQuantity  int
	ImagePath      string
	IsActive       bool
}

// NewProduct creates an active product linked to its 1C identifier
func NewProduct(onecID, name string) (*Product, error) {
	if onecID == "" {
		return nil, shared.NewDomainError("INVALID_ONEC_ID", "Product 1C identifier cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		OnecID:         onecID,
		Name:           name,
		RetailPrice:    decimal.Zero,
		WholesalePrice: decimal.Zero,
		IsActive:       true,
	}, nil
}

// SetPrices updates both price tiers
func (p *Product) SetPrices(retail, wholesale decimal.Decimal) {
	p.RetailPrice = retail
	p.WholesalePrice = wholesale
	p.Touch()
}

// SetStock replaces the stored stock quantity; negative values clamp to zero
func (p *Product) SetStock(quantity int) {
	if quantity < 0 {
		quantity = 0
	}
	p.StockQuantity = quantity
	p.Touch()
}

// SetImage stores the relative path of the product image
func (p *Product) SetImage(path string) {
	p.ImagePath = path
	p.Touch()
}

// Deactivate hides the product from the storefront without deleting it
func (p *Product) Deactivate() {
	p.IsActive = false
	p.Touch()
}
