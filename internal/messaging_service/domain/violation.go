package domain

import (
	"time"

	"github.com/google/uuid"
)

// ViolationKind identifies one detector of the anti-poaching scanner. A
// single message can carry several kinds.
type ViolationKind string

const (
	ViolationPhoneNumber         ViolationKind = "PHONE_NUMBER"
	ViolationEmail               ViolationKind = "EMAIL"
	ViolationURL                 ViolationKind = "URL"
	ViolationSocialHandle        ViolationKind = "SOCIAL_HANDLE"
	ViolationDirectContactPhrase ViolationKind = "DIRECT_CONTACT_PHRASE"
)

// ViolationStatus tracks the owner's review of a blocked message.
type ViolationStatus string

const (
	ViolationStatusOpen       ViolationStatus = "open"
	ViolationStatusResolved   ViolationStatus = "resolved"
	ViolationStatusDismissed  ViolationStatus = "dismissed"
	ViolationStatusOverridden ViolationStatus = "overridden"
)

// PolicyViolation is the audit record written when the scanner blocks an
// outbound message (or flags an inbound one). DetectedSummary holds the
// redacted text; the raw body stays on the immutable MessageEvent and is
// only revealed through explicit owner override.
type PolicyViolation struct {
	ID             uuid.UUID
	OrgID          uuid.UUID
	ThreadID       uuid.UUID
	MessageEventID uuid.UUID
	SenderID       uuid.NullUUID
	Reasons        []ViolationKind
	DetectedSummary string
	Status          ViolationStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
