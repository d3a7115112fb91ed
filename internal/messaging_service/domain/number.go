package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NumberClass describes how a messaging number is used within an org.
type NumberClass string

const (
	NumberClassFrontDesk NumberClass = "front_desk" // shared business line
	NumberClassSitter    NumberClass = "sitter"     // dedicated masked number for one sitter
	NumberClassPool      NumberClass = "pool"       // rotating shared number for unassigned clients
)

// NumberStatus is the lifecycle state of a messaging number. Numbers are
// never hard-deleted, only status-transitioned.
type NumberStatus string

const (
	NumberStatusActive      NumberStatus = "active"
	NumberStatusQuarantined NumberStatus = "quarantined"
	NumberStatusInactive    NumberStatus = "inactive"
)

// MessageNumber is a provider-provisioned phone number owned by an
// organization. At most one active row may exist per (org, E164).
type MessageNumber struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	E164             string
	Class            NumberClass
	Status           NumberStatus
	AssignedSitterID uuid.NullUUID // set only for class=sitter
	LastUsedAt       *time.Time    // drives pool rotation (least-recently-used first)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NumberDirectory maps phone numbers to org ownership and class. All
// lookups expect E.164 input; callers normalize first.
type NumberDirectory interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*MessageNumber, error)
	// GetActiveByE164 looks a number up across orgs; active E164s are
	// globally unique, so this is how inbound webhooks find their tenant.
	GetActiveByE164(ctx context.Context, e164 string) (*MessageNumber, error)
	// GetActiveSitterNumber returns the sitter's dedicated active
	// class=sitter number, or ErrNotFound.
	GetActiveSitterNumber(ctx context.Context, orgID, sitterID uuid.UUID) (*MessageNumber, error)
	// GetLeastRecentlyUsedPoolNumber returns the active pool number with the
	// oldest last_used_at, or ErrNotFound when the pool is empty.
	GetLeastRecentlyUsedPoolNumber(ctx context.Context, orgID uuid.UUID) (*MessageNumber, error)
	GetActiveFrontDeskNumber(ctx context.Context, orgID uuid.UUID) (*MessageNumber, error)
	// GetAnyActiveNumber is the last-resort fallback for orgs whose number
	// inventory is partially configured.
	GetAnyActiveNumber(ctx context.Context, orgID uuid.UUID) (*MessageNumber, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status NumberStatus) error
}
