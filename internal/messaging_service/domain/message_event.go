package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus is the delivery state of a message event.
//
// State machine: draft -> sent | blocked | failed. A blocked event may
// later transition to sent via owner force-send; the same row is mutated
// with override metadata, never duplicated.
type MessageStatus string

const (
	MessageStatusDraft   MessageStatus = "draft"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusBlocked MessageStatus = "blocked"
	MessageStatusFailed  MessageStatus = "failed"
	// MessageStatusReceived is the single terminal state of inbound events.
	MessageStatusReceived MessageStatus = "received"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// Role of an authenticated actor. Sitters are categorically forbidden from
// force-sending; only owner/admin may override a policy block.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleSitter Role = "sitter"
)

// CanForceSend reports whether the role may override a policy block.
func (r Role) CanForceSend() bool {
	return r == RoleOwner || r == RoleAdmin
}

// MessageEvent is one message crossing the platform boundary in either
// direction. The body is immutable once written; audit surfaces only ever
// see redacted text (see PolicyViolation).
type MessageEvent struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	ThreadID  uuid.UUID
	SenderID  uuid.NullUUID // null for inbound client messages
	Direction MessageDirection
	Body      string
	FromNumberID uuid.NullUUID
	FromE164     string
	ToE164       string
	Status       MessageStatus

	ProviderMessageID *string
	ErrorMessage      *string

	// Override audit trail, set only by force-send.
	ForceSentBy     uuid.NullUUID
	ForceSentReason *string
	ForceSentAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
