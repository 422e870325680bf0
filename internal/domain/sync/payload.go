package sync

// CustomerPayload is the inbound customer record from the 1C exchange file or
// a live exchange call. Any subset of the identity keys may be present; empty
// strings mean "not supplied".
type CustomerPayload struct {
	OnecID    string `json:"onec_id"`
	OnecGUID  string `json:"onec_guid"`
	TaxID     string `json:"tax_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	// Password is only meaningful for portal_registration conflicts, where the
	// registrant's chosen password is adopted by the existing 1C-backed account
	Password string `json:"-"`
}

// HasIdentity reports whether the payload carries at least one identity key
func (p CustomerPayload) HasIdentity() bool {
	return p.OnecID != "" || p.OnecGUID != "" || p.TaxID != "" || p.Email != ""
}

// IdentityMethod names the cascade channel that produced a match
type IdentityMethod string

const (
	MethodOnecID   IdentityMethod = "onec_id"
	MethodOnecGUID IdentityMethod = "onec_guid"
	MethodTaxID    IdentityMethod = "tax_id"
	MethodEmail    IdentityMethod = "email"
	MethodNotFound IdentityMethod = "not_found"
)
