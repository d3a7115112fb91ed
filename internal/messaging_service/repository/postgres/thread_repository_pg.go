package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

const threadColumns = `id, org_id, kind, client_id, client_e164, default_number_id, status, last_activity_at, created_at, updated_at`

type PgThreadRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgThreadRepository(db *pgxpool.Pool, logger *slog.Logger) *PgThreadRepository {
	return &PgThreadRepository{db: db, logger: logger.With("repository", "thread")}
}

func scanThread(row pgx.Row) (*domain.Thread, error) {
	t := &domain.Thread{}
	err := row.Scan(
		&t.ID, &t.OrgID, &t.Kind, &t.ClientID, &t.ClientE164,
		&t.DefaultNumberID, &t.Status, &t.LastActivityAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PgThreadRepository) GetByID(ctx context.Context, orgID, threadID uuid.UUID) (*domain.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM message_threads WHERE id = $1 AND org_id = $2`
	t, err := scanThread(r.db.QueryRow(ctx, query, threadID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting thread by ID", "error", err, "thread_id", threadID)
		return nil, err
	}
	return t, nil
}

func (r *PgThreadRepository) FindByClientE164(ctx context.Context, orgID uuid.UUID, e164 string) (*domain.Thread, error) {
	query := `
		SELECT ` + threadColumns + ` FROM message_threads
		WHERE org_id = $1 AND client_e164 = $2 AND kind = 'client' AND status = 'open'
		ORDER BY created_at DESC
		LIMIT 1
	`
	t, err := scanThread(r.db.QueryRow(ctx, query, orgID, e164))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error finding thread by client E164", "error", err, "org_id", orgID)
		return nil, err
	}
	return t, nil
}

func (r *PgThreadRepository) Create(ctx context.Context, t *domain.Thread) error {
	query := `
		INSERT INTO message_threads (` + threadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.OrgID, t.Kind, t.ClientID, t.ClientE164,
		t.DefaultNumberID, t.Status, t.LastActivityAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error creating thread", "error", err, "thread_id", t.ID)
		return err
	}
	r.logger.InfoContext(ctx, "Thread created", "thread_id", t.ID, "org_id", t.OrgID, "kind", t.Kind)
	return nil
}

// FindOrCreateOwnerInbox relies on the partial unique index on
// (org_id) where kind = 'owner_inbox': a concurrent insert loses with a
// unique violation and re-reads the winner's row.
func (r *PgThreadRepository) FindOrCreateOwnerInbox(ctx context.Context, orgID uuid.UUID) (*domain.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM message_threads WHERE org_id = $1 AND kind = 'owner_inbox'`
	t, err := scanThread(r.db.QueryRow(ctx, query, orgID))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.ErrorContext(ctx, "Error finding owner inbox", "error", err, "org_id", orgID)
		return nil, err
	}

	now := time.Now().UTC()
	inbox := &domain.Thread{
		ID:        uuid.New(),
		OrgID:     orgID,
		Kind:      domain.ThreadKindOwnerInbox,
		Status:    domain.ThreadStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if createErr := r.Create(ctx, inbox); createErr != nil {
		if errors.Is(createErr, domain.ErrDuplicateEntry) {
			return scanThread(r.db.QueryRow(ctx, query, orgID))
		}
		return nil, createErr
	}
	return inbox, nil
}

func (r *PgThreadRepository) TouchActivity(ctx context.Context, threadID uuid.UUID, at time.Time) error {
	query := `UPDATE message_threads SET last_activity_at = $1, updated_at = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, at, threadID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error touching thread activity", "error", err, "thread_id", threadID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
