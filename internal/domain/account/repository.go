package account

import "context"

// Repository defines persistence for customer accounts. Lookup methods return
// shared.ErrNotFound when no account owns the given identity value.
type Repository interface {
	FindByOnecID(ctx context.Context, onecID string) (*CustomerAccount, error)
	FindByOnecGUID(ctx context.Context, onecGUID string) (*CustomerAccount, error)
	FindByTaxID(ctx context.Context, taxID string) (*CustomerAccount, error)
	FindByEmail(ctx context.Context, email string) (*CustomerAccount, error)
	Save(ctx context.Context, account *CustomerAccount) error
}
