package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/shared"
)

// ConflictType classifies what kind of disagreement was detected
type ConflictType string

const (
	ConflictTypeRegistrationBlocked ConflictType = "portal_registration_blocked"
	ConflictTypeCustomerData        ConflictType = "customer_data"
	ConflictTypeOrderData           ConflictType = "order_data"
	ConflictTypeProductData         ConflictType = "product_data"
)

// IsValid checks if the conflict type is valid
func (t ConflictType) IsValid() bool {
	switch t {
	case ConflictTypeRegistrationBlocked, ConflictTypeCustomerData,
		ConflictTypeOrderData, ConflictTypeProductData:
		return true
	}
	return false
}

// ResolutionStrategy names which side of a conflict wins
type ResolutionStrategy string

const (
	// StrategyOnecWins is the default: 1C is the authoritative master system
	StrategyOnecWins   ResolutionStrategy = "onec_wins"
	StrategyPortalWins ResolutionStrategy = "portal_wins"
	// StrategyManual is reserved; no code path selects it yet
	StrategyManual ResolutionStrategy = "manual"
)

// ConflictSource identifies where the conflicting data came from
type ConflictSource string

const (
	SourcePortalRegistration ConflictSource = "portal_registration"
	SourceDataImport         ConflictSource = "data_import"
)

// IsValid checks if the source is one the resolver knows how to handle
func (s ConflictSource) IsValid() bool {
	return s == SourcePortalRegistration || s == SourceDataImport
}

// FieldSnapshot captures comparable account fields at one point in time
type FieldSnapshot map[string]string

// SyncConflict is the immutable record of one detected and resolved
// disagreement between portal and 1C data. Created only after resolution
// completes; never mutated afterwards.
type SyncConflict struct {
	shared.BaseEntity
	ConflictType       ConflictType
	CustomerID         *uuid.UUID
	PlatformData       FieldSnapshot
	OnecData           FieldSnapshot
	ConflictingFields  []string
	ResolutionStrategy ResolutionStrategy
	IsResolved         bool
	ResolutionDetails  string
	ResolvedAt         *time.Time
	ResolvedBy         string
}

// NewResolvedConflict builds a conflict record that is already resolved, which
// is the only way conflicts enter the system in the current design.
func NewResolvedConflict(
	conflictType ConflictType,
	platformData, onecData FieldSnapshot,
	conflictingFields []string,
	details string,
	resolvedBy string,
) (*SyncConflict, error) {
	if !conflictType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONFLICT_TYPE", fmt.Sprintf("Invalid conflict type: %s", conflictType))
	}
	now := time.Now()
	return &SyncConflict{
		BaseEntity:         shared.NewBaseEntity(),
		ConflictType:       conflictType,
		PlatformData:       platformData,
		OnecData:           onecData,
		ConflictingFields:  conflictingFields,
		ResolutionStrategy: StrategyOnecWins,
		IsResolved:         true,
		ResolutionDetails:  details,
		ResolvedAt:         &now,
		ResolvedBy:         resolvedBy,
	}, nil
}

// SnapshotJSON serializes a field snapshot for persistence
func SnapshotJSON(snapshot FieldSnapshot) (string, error) {
	if len(snapshot) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal field snapshot: %w", err)
	}
	return string(data), nil
}

// SnapshotFromJSON parses a field snapshot from its stored form
func SnapshotFromJSON(jsonStr string) (FieldSnapshot, error) {
	if jsonStr == "" || jsonStr == "{}" {
		return FieldSnapshot{}, nil
	}
	var snapshot FieldSnapshot
	if err := json.Unmarshal([]byte(jsonStr), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field snapshot: %w", err)
	}
	return snapshot, nil
}
