package account

import (
	"time"

	"github.com/portal/backend/internal/domain/shared"
)

// CustomerAccount is a portal user account that may be linked to a 1C customer.
// Identity attributes (OnecID, OnecGUID, TaxID, Email) are unique when non-empty;
// the identity cascade relies on that invariant.
type CustomerAccount struct {
	shared.BaseEntity
	OnecID         string
	OnecGUID       string
	TaxID          string
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	Company        string
	PasswordHash   string
	IsVerified     bool
	LastSyncFrom1C *time.Time
}

// NewCustomerAccount creates a new account with a normalized email
func NewCustomerAccount(email string) (*CustomerAccount, error) {
	normalized := NormalizeEmail(email)
	if email != "" && normalized == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email address is malformed")
	}
	return &CustomerAccount{
		BaseEntity: shared.NewBaseEntity(),
		Email:      normalized,
	}, nil
}

// SetPasswordHash replaces the stored password hash
func (a *CustomerAccount) SetPasswordHash(hash string) {
	a.PasswordHash = hash
	a.Touch()
}

// MarkVerified flags the account as a verified 1C-backed client
func (a *CustomerAccount) MarkVerified() {
	a.IsVerified = true
	a.Touch()
}

// StampSync records the 1C GUID and the moment the last inbound sync touched
// this account
func (a *CustomerAccount) StampSync(onecGUID string, at time.Time) {
	if onecGUID != "" {
		a.OnecGUID = onecGUID
	}
	a.LastSyncFrom1C = &at
	a.Touch()
}

// FullName returns the display name used in audit details
func (a *CustomerAccount) FullName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	default:
		return a.LastName
	}
}
