package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ThreadKind separates regular client conversations from the per-org owner
// inbox, which collects messages that cannot be routed to a sitter.
type ThreadKind string

const (
	ThreadKindClient     ThreadKind = "client"
	ThreadKindOwnerInbox ThreadKind = "owner_inbox"
)

// ThreadStatus transitions (open/closed) are driven by the booking side of
// the platform, not by this core.
type ThreadStatus string

const (
	ThreadStatusOpen   ThreadStatus = "open"
	ThreadStatusClosed ThreadStatus = "closed"
)

// Thread is one conversation between the business and one client. Exactly
// one default number is bound at any time (DefaultNumberID may be null only
// for the owner inbox).
type Thread struct {
	ID              uuid.UUID
	OrgID           uuid.UUID
	Kind            ThreadKind
	ClientID        uuid.NullUUID
	ClientE164      string // empty for the owner inbox
	DefaultNumberID uuid.NullUUID
	Status          ThreadStatus
	LastActivityAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ThreadRepository interface {
	GetByID(ctx context.Context, orgID, threadID uuid.UUID) (*Thread, error)
	// FindByClientE164 returns the org's open client thread for a phone
	// number, or ErrNotFound.
	FindByClientE164(ctx context.Context, orgID uuid.UUID, e164 string) (*Thread, error)
	Create(ctx context.Context, t *Thread) error
	// FindOrCreateOwnerInbox returns the org's single owner-inbox thread,
	// creating it on first use.
	FindOrCreateOwnerInbox(ctx context.Context, orgID uuid.UUID) (*Thread, error)
	TouchActivity(ctx context.Context, threadID uuid.UUID, at time.Time) error
}
