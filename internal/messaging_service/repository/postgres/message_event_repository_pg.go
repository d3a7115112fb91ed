package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
)

const eventColumns = `id, org_id, thread_id, sender_id, direction, body, from_number_id, from_e164, to_e164, status,
	provider_message_id, error_message, force_sent_by, force_sent_reason, force_sent_at, created_at, updated_at`

// PgMessageEventRepository persists message events. Methods take a DBTX so
// the orchestrator can pair an event write with a violation write in one
// transaction.
type PgMessageEventRepository struct {
	logger *slog.Logger
}

func NewPgMessageEventRepository(logger *slog.Logger) *PgMessageEventRepository {
	return &PgMessageEventRepository{logger: logger.With("repository", "message_event")}
}

func (r *PgMessageEventRepository) Create(ctx context.Context, db repository.DBTX, ev *domain.MessageEvent) error {
	query := `
		INSERT INTO message_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := db.Exec(ctx, query,
		ev.ID, ev.OrgID, ev.ThreadID, ev.SenderID, ev.Direction, ev.Body,
		ev.FromNumberID, ev.FromE164, ev.ToE164, ev.Status,
		ev.ProviderMessageID, ev.ErrorMessage,
		ev.ForceSentBy, ev.ForceSentReason, ev.ForceSentAt,
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating message event", "error", err, "event_id", ev.ID)
		return err
	}
	return nil
}

func (r *PgMessageEventRepository) GetByID(ctx context.Context, db repository.DBTX, orgID, id uuid.UUID) (*domain.MessageEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM message_events WHERE id = $1 AND org_id = $2`
	ev := &domain.MessageEvent{}
	err := db.QueryRow(ctx, query, id, orgID).Scan(
		&ev.ID, &ev.OrgID, &ev.ThreadID, &ev.SenderID, &ev.Direction, &ev.Body,
		&ev.FromNumberID, &ev.FromE164, &ev.ToE164, &ev.Status,
		&ev.ProviderMessageID, &ev.ErrorMessage,
		&ev.ForceSentBy, &ev.ForceSentReason, &ev.ForceSentAt,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting message event", "error", err, "event_id", id)
		return nil, err
	}
	return ev, nil
}

func (r *PgMessageEventRepository) UpdatePostSendInfo(ctx context.Context, db repository.DBTX, id uuid.UUID, status domain.MessageStatus, providerMessageID *string, errorMessage *string, at time.Time) error {
	query := `
		UPDATE message_events
		SET status = $1, provider_message_id = $2, error_message = $3, updated_at = $4
		WHERE id = $5 AND status = 'draft'
	`
	tag, err := db.Exec(ctx, query, status, providerMessageID, errorMessage, at, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating event post-send", "error", err, "event_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Event missing or not in draft for post-send update", "event_id", id)
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PgMessageEventRepository) MarkForceSent(ctx context.Context, db repository.DBTX, id uuid.UUID, fromNumberID uuid.UUID, fromE164 string, providerMessageID *string, actorID uuid.UUID, reason string, at time.Time) error {
	// Guarding on status = 'blocked' makes concurrent force-sends of the
	// same event a no-op race: exactly one wins.
	query := `
		UPDATE message_events
		SET status = 'sent', from_number_id = $1, from_e164 = $2, provider_message_id = $3,
		    force_sent_by = $4, force_sent_reason = $5, force_sent_at = $6, updated_at = $6
		WHERE id = $7 AND status = 'blocked'
	`
	tag, err := db.Exec(ctx, query, fromNumberID, fromE164, providerMessageID, actorID, reason, at, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking event force-sent", "error", err, "event_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Event missing or not blocked for force-send", "event_id", id)
		return domain.ErrInvalidState
	}
	r.logger.InfoContext(ctx, "Event force-sent", "event_id", id, "actor_id", actorID)
	return nil
}
