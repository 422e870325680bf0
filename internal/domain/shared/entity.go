package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and bookkeeping timestamps every aggregate
// embeds. IDs are generated application-side so entities exist before their
// first save.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity generates a fresh identity
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt. Sessions rely on this: the stale reaper measures
// idleness from the last touch.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}
