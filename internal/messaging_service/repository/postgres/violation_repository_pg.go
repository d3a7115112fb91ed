package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
)

const violationColumns = `id, org_id, thread_id, message_event_id, sender_id, reasons, detected_summary, status, created_at, updated_at`

// PgViolationRepository persists anti-poaching violations. DetectedSummary
// holds only the redacted text; the raw body lives on the message event.
type PgViolationRepository struct {
	logger *slog.Logger
}

func NewPgViolationRepository(logger *slog.Logger) *PgViolationRepository {
	return &PgViolationRepository{logger: logger.With("repository", "policy_violation")}
}

func (r *PgViolationRepository) Create(ctx context.Context, db repository.DBTX, v *domain.PolicyViolation) error {
	query := `
		INSERT INTO policy_violations (` + violationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	reasonsJSON, err := json.Marshal(v.Reasons)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marshaling violation reasons", "error", err, "violation_id", v.ID)
		return err
	}
	_, err = db.Exec(ctx, query,
		v.ID, v.OrgID, v.ThreadID, v.MessageEventID, v.SenderID,
		reasonsJSON, v.DetectedSummary, v.Status, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating violation", "error", err, "violation_id", v.ID)
		return err
	}
	return nil
}

func scanViolation(row pgx.Row) (*domain.PolicyViolation, error) {
	v := &domain.PolicyViolation{}
	var reasonsJSON []byte
	err := row.Scan(
		&v.ID, &v.OrgID, &v.ThreadID, &v.MessageEventID, &v.SenderID,
		&reasonsJSON, &v.DetectedSummary, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reasonsJSON, &v.Reasons); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PgViolationRepository) GetByID(ctx context.Context, db repository.DBTX, orgID, id uuid.UUID) (*domain.PolicyViolation, error) {
	query := `SELECT ` + violationColumns + ` FROM policy_violations WHERE id = $1 AND org_id = $2`
	v, err := scanViolation(db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting violation by ID", "error", err, "violation_id", id)
		return nil, err
	}
	return v, nil
}

func (r *PgViolationRepository) ListByOrg(ctx context.Context, db repository.DBTX, orgID uuid.UUID, status *domain.ViolationStatus, limit, offset int) ([]*domain.PolicyViolation, error) {
	query := `
		SELECT ` + violationColumns + ` FROM policy_violations
		WHERE org_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := db.Query(ctx, query, orgID, status, limit, offset)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing violations", "error", err, "org_id", orgID)
		return nil, err
	}
	defer rows.Close()

	var violations []*domain.PolicyViolation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning violation row", "error", err, "org_id", orgID)
			return nil, err
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating violation rows", "error", err, "org_id", orgID)
		return nil, err
	}
	return violations, nil
}

func (r *PgViolationRepository) UpdateStatus(ctx context.Context, db repository.DBTX, orgID, id uuid.UUID, status domain.ViolationStatus) error {
	query := `UPDATE policy_violations SET status = $1, updated_at = $2 WHERE id = $3 AND org_id = $4`
	tag, err := db.Exec(ctx, query, status, time.Now().UTC(), id, orgID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating violation status", "error", err, "violation_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgViolationRepository) MarkOverriddenByEvent(ctx context.Context, db repository.DBTX, eventID uuid.UUID) error {
	query := `UPDATE policy_violations SET status = 'overridden', updated_at = $1 WHERE message_event_id = $2 AND status = 'open'`
	_, err := db.Exec(ctx, query, time.Now().UTC(), eventID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking violations overridden", "error", err, "event_id", eventID)
		return err
	}
	return nil
}
