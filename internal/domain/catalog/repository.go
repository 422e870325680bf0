package catalog

import "context"

// ProductRepository defines persistence for catalog products
type ProductRepository interface {
	FindByOnecID(ctx context.Context, onecID string) (*Product, error)
	// ExistsActive reports whether at least one active product exists. Used as
	// the cheap precondition check before stock, price, and image imports.
	ExistsActive(ctx context.Context) (bool, error)
	Save(ctx context.Context, product *Product) error
	SaveBatch(ctx context.Context, products []*Product) error
}
