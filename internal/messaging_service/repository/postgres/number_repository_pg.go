package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

const numberColumns = `id, org_id, e164, class, status, assigned_sitter_id, last_used_at, created_at, updated_at`

type PgNumberRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgNumberRepository(db *pgxpool.Pool, logger *slog.Logger) *PgNumberRepository {
	return &PgNumberRepository{db: db, logger: logger.With("repository", "number")}
}

func scanNumber(row pgx.Row) (*domain.MessageNumber, error) {
	n := &domain.MessageNumber{}
	err := row.Scan(
		&n.ID, &n.OrgID, &n.E164, &n.Class, &n.Status,
		&n.AssignedSitterID, &n.LastUsedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *PgNumberRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.MessageNumber, error) {
	query := `SELECT ` + numberColumns + ` FROM message_numbers WHERE id = $1 AND org_id = $2`
	n, err := scanNumber(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting number by ID", "error", err, "number_id", id)
		return nil, err
	}
	return n, nil
}

// GetActiveByE164 intentionally omits org scoping: inbound webhooks carry
// only the destination number, and the unique index on (e164) where
// status = 'active' guarantees at most one owner.
func (r *PgNumberRepository) GetActiveByE164(ctx context.Context, e164 string) (*domain.MessageNumber, error) {
	query := `SELECT ` + numberColumns + ` FROM message_numbers WHERE e164 = $1 AND status = 'active'`
	n, err := scanNumber(r.db.QueryRow(ctx, query, e164))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting active number by E164", "error", err)
		return nil, err
	}
	return n, nil
}

func (r *PgNumberRepository) GetActiveSitterNumber(ctx context.Context, orgID, sitterID uuid.UUID) (*domain.MessageNumber, error) {
	query := `
		SELECT ` + numberColumns + ` FROM message_numbers
		WHERE org_id = $1 AND assigned_sitter_id = $2 AND class = 'sitter' AND status = 'active'
	`
	n, err := scanNumber(r.db.QueryRow(ctx, query, orgID, sitterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting sitter number", "error", err, "sitter_id", sitterID)
		return nil, err
	}
	return n, nil
}

// GetLeastRecentlyUsedPoolNumber orders NULLS FIRST so never-used numbers
// rotate in before any used one.
func (r *PgNumberRepository) GetLeastRecentlyUsedPoolNumber(ctx context.Context, orgID uuid.UUID) (*domain.MessageNumber, error) {
	query := `
		SELECT ` + numberColumns + ` FROM message_numbers
		WHERE org_id = $1 AND class = 'pool' AND status = 'active'
		ORDER BY last_used_at ASC NULLS FIRST, id ASC
		LIMIT 1
	`
	n, err := scanNumber(r.db.QueryRow(ctx, query, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting pool number", "error", err, "org_id", orgID)
		return nil, err
	}
	return n, nil
}

func (r *PgNumberRepository) GetActiveFrontDeskNumber(ctx context.Context, orgID uuid.UUID) (*domain.MessageNumber, error) {
	query := `
		SELECT ` + numberColumns + ` FROM message_numbers
		WHERE org_id = $1 AND class = 'front_desk' AND status = 'active'
		ORDER BY created_at ASC
		LIMIT 1
	`
	n, err := scanNumber(r.db.QueryRow(ctx, query, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting front desk number", "error", err, "org_id", orgID)
		return nil, err
	}
	return n, nil
}

func (r *PgNumberRepository) GetAnyActiveNumber(ctx context.Context, orgID uuid.UUID) (*domain.MessageNumber, error) {
	query := `
		SELECT ` + numberColumns + ` FROM message_numbers
		WHERE org_id = $1 AND status = 'active'
		ORDER BY created_at ASC
		LIMIT 1
	`
	n, err := scanNumber(r.db.QueryRow(ctx, query, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting any active number", "error", err, "org_id", orgID)
		return nil, err
	}
	return n, nil
}

func (r *PgNumberRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE message_numbers SET last_used_at = $1, updated_at = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error touching number last_used_at", "error", err, "number_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgNumberRepository) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status domain.NumberStatus) error {
	query := `UPDATE message_numbers SET status = $1, updated_at = $2 WHERE id = $3 AND org_id = $4`
	tag, err := r.db.Exec(ctx, query, status, time.Now().UTC(), id, orgID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating number status", "error", err, "number_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Number not found for status update", "number_id", id, "org_id", orgID)
		return domain.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Number status updated", "number_id", id, "status", status)
	return nil
}
