package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so that writes which
// must be atomic (blocked event + violation row) can share a transaction
// while single-row operations run straight off the pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MessageEventRepository persists message events.
type MessageEventRepository interface {
	Create(ctx context.Context, db DBTX, ev *domain.MessageEvent) error
	GetByID(ctx context.Context, db DBTX, orgID, id uuid.UUID) (*domain.MessageEvent, error)
	// UpdatePostSendInfo moves a draft to its terminal state after the
	// provider call (sent or failed).
	UpdatePostSendInfo(ctx context.Context, db DBTX, id uuid.UUID, status domain.MessageStatus, providerMessageID *string, errorMessage *string, at time.Time) error
	// MarkForceSent flips a blocked event to sent, reusing the row and
	// stamping the override audit metadata.
	MarkForceSent(ctx context.Context, db DBTX, id uuid.UUID, fromNumberID uuid.UUID, fromE164 string, providerMessageID *string, actorID uuid.UUID, reason string, at time.Time) error
}

// PolicyViolationRepository persists anti-poaching audit records.
type PolicyViolationRepository interface {
	Create(ctx context.Context, db DBTX, v *domain.PolicyViolation) error
	GetByID(ctx context.Context, db DBTX, orgID, id uuid.UUID) (*domain.PolicyViolation, error)
	ListByOrg(ctx context.Context, db DBTX, orgID uuid.UUID, status *domain.ViolationStatus, limit, offset int) ([]*domain.PolicyViolation, error)
	UpdateStatus(ctx context.Context, db DBTX, orgID, id uuid.UUID, status domain.ViolationStatus) error
	// MarkOverriddenByEvent transitions the violation(s) attached to a
	// message event when the owner force-sends it.
	MarkOverriddenByEvent(ctx context.Context, db DBTX, eventID uuid.UUID) error
}
