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

const windowColumns = `id, org_id, thread_id, sitter_id, start_at, end_at, status, created_at`

// PgWindowRepository reads assignment windows. Window writes happen in the
// scheduling system; this core never creates or mutates them.
type PgWindowRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgWindowRepository(db *pgxpool.Pool, logger *slog.Logger) *PgWindowRepository {
	return &PgWindowRepository{db: db, logger: logger.With("repository", "assignment_window")}
}

func (r *PgWindowRepository) ActiveWindowsForThread(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) ([]*domain.AssignmentWindow, error) {
	query := `
		SELECT ` + windowColumns + ` FROM assignment_windows
		WHERE org_id = $1 AND thread_id = $2 AND status = 'active'
		  AND start_at <= $3 AND end_at >= $3
		ORDER BY start_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, orgID, threadID, at)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying active windows", "error", err, "thread_id", threadID)
		return nil, err
	}
	defer rows.Close()

	var windows []*domain.AssignmentWindow
	for rows.Next() {
		w := &domain.AssignmentWindow{}
		if err := rows.Scan(&w.ID, &w.OrgID, &w.ThreadID, &w.SitterID, &w.StartAt, &w.EndAt, &w.Status, &w.CreatedAt); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning window row", "error", err, "thread_id", threadID)
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating window rows", "error", err, "thread_id", threadID)
		return nil, err
	}
	return windows, nil
}

func (r *PgWindowRepository) ActiveWindowForSitter(ctx context.Context, orgID, threadID, sitterID uuid.UUID, at time.Time) (*domain.AssignmentWindow, error) {
	query := `
		SELECT ` + windowColumns + ` FROM assignment_windows
		WHERE org_id = $1 AND thread_id = $2 AND sitter_id = $3 AND status = 'active'
		  AND start_at <= $4 AND end_at >= $4
		ORDER BY start_at DESC, id DESC
		LIMIT 1
	`
	w := &domain.AssignmentWindow{}
	err := r.db.QueryRow(ctx, query, orgID, threadID, sitterID, at).Scan(
		&w.ID, &w.OrgID, &w.ThreadID, &w.SitterID, &w.StartAt, &w.EndAt, &w.Status, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error querying sitter window", "error", err, "sitter_id", sitterID)
		return nil, err
	}
	return w, nil
}
