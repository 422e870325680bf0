package syncapp

import (
	"context"
	"errors"
	"time"

	"github.com/portal/backend/internal/domain/account"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// IdentityResolver maps an inbound 1C customer payload to an existing portal
// account. The cascade is strictly ordered: identifiers issued by 1C are
// authoritative and collision-free, tax id is stable but re-enterable, and
// email is the weakest signal so it is tried last. The resolver never mutates
// accounts.
type IdentityResolver struct {
	accounts account.Repository
	audit    *AuditLogger
	logger   *zap.Logger
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(accounts account.Repository, audit *AuditLogger, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		accounts: accounts,
		audit:    audit,
		logger:   logger,
	}
}

// identityChannel is one step of the cascade: a normalizer that may reject the
// raw value (returning "") and the lookup bound to that channel.
type identityChannel struct {
	method    sync.IdentityMethod
	raw       func(sync.CustomerPayload) string
	normalize func(string) string
	find      func(context.Context, string) (*account.CustomerAccount, error)
}

func (r *IdentityResolver) channels() []identityChannel {
	identity := func(v string) string { return v }
	return []identityChannel{
		{
			method:    sync.MethodOnecID,
			raw:       func(p sync.CustomerPayload) string { return p.OnecID },
			normalize: identity,
			find:      r.accounts.FindByOnecID,
		},
		{
			method:    sync.MethodOnecGUID,
			raw:       func(p sync.CustomerPayload) string { return p.OnecGUID },
			normalize: identity,
			find:      r.accounts.FindByOnecGUID,
		},
		{
			method:    sync.MethodTaxID,
			raw:       func(p sync.CustomerPayload) string { return p.TaxID },
			normalize: account.NormalizeTaxID,
			find:      r.accounts.FindByTaxID,
		},
		{
			method:    sync.MethodEmail,
			raw:       func(p sync.CustomerPayload) string { return p.Email },
			normalize: account.NormalizeEmail,
			find:      r.accounts.FindByEmail,
		},
	}
}

// Identify runs the cascade and returns the first matching account together
// with the channel that matched. A miss is not an error: the method is
// MethodNotFound and the account is nil. Every call produces exactly one audit
// entry under the supplied correlation id.
func (r *IdentityResolver) Identify(
	ctx context.Context,
	payload sync.CustomerPayload,
	correlationID string,
) (*account.CustomerAccount, sync.IdentityMethod, error) {
	started := time.Now()
	declared := declaredIdentifiers(payload)
	skipped := make([]string, 0, 2)

	for _, ch := range r.channels() {
		raw := ch.raw(payload)
		if raw == "" {
			continue
		}
		value := ch.normalize(raw)
		if value == "" {
			// Malformed value: the channel is skipped, never fatal
			skipped = append(skipped, string(ch.method))
			continue
		}

		matched, err := ch.find(ctx, value)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			r.audit.Record(ctx, sync.OpIdentification, sync.LogStatusError, correlationID,
				WithOnecID(payload.OnecID),
				WithDuration(time.Since(started)),
				WithError(err),
				WithDetails(sync.LogDetails{
					"method":   string(ch.method),
					"value":    value,
					"declared": declared,
				}),
			)
			return nil, "", err
		}

		r.audit.Record(ctx, sync.OpIdentification, sync.LogStatusSuccess, correlationID,
			WithCustomer(matched.ID),
			WithOnecID(payload.OnecID),
			WithDuration(time.Since(started)),
			WithDetails(sync.LogDetails{
				"method":           string(ch.method),
				"value":            value,
				"declared":         declared,
				"skipped_channels": skipped,
			}),
		)
		return matched, ch.method, nil
	}

	r.audit.Record(ctx, sync.OpIdentification, sync.LogStatusSkipped, correlationID,
		WithOnecID(payload.OnecID),
		WithDuration(time.Since(started)),
		WithDetails(sync.LogDetails{
			"method":           string(sync.MethodNotFound),
			"declared":         declared,
			"skipped_channels": skipped,
		}),
	)
	return nil, sync.MethodNotFound, nil
}

// declaredIdentifiers lists which identity keys the payload carried, for the
// audit trail
func declaredIdentifiers(p sync.CustomerPayload) []string {
	declared := make([]string, 0, 4)
	if p.OnecID != "" {
		declared = append(declared, "onec_id")
	}
	if p.OnecGUID != "" {
		declared = append(declared, "onec_guid")
	}
	if p.TaxID != "" {
		declared = append(declared, "tax_id")
	}
	if p.Email != "" {
		declared = append(declared, "email")
	}
	return declared
}
