package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/routing/domain"
	"github.com/pawsline/relay/internal/routing/repository"
)

const windowColumns = `id, org_id, thread_id, sitter_id, start_at, end_at, booking_ref, created_at, updated_at`

type pgWindowRepository struct {
	logger *slog.Logger
}

// NewPgWindowRepository creates the PostgreSQL assignment window repository.
func NewPgWindowRepository(logger *slog.Logger) repository.WindowRepository {
	return &pgWindowRepository{logger: logger.With("component", "window_repository_pg")}
}

func scanWindow(row pgx.Row, w *domain.AssignmentWindow) error {
	return row.Scan(
		&w.ID, &w.OrgID, &w.ThreadID, &w.SitterID,
		&w.StartAt, &w.EndAt, &w.BookingRef, &w.CreatedAt, &w.UpdatedAt,
	)
}

func (r *pgWindowRepository) Create(ctx context.Context, q dbiface.Querier, w *domain.AssignmentWindow) (*domain.AssignmentWindow, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	query := `
		INSERT INTO assignment_windows (` + windowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.Exec(ctx, query,
		w.ID, w.OrgID, w.ThreadID, w.SitterID,
		w.StartAt, w.EndAt, w.BookingRef, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting assignment window: %w", err)
	}
	return w, nil
}

func (r *pgWindowRepository) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.AssignmentWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM assignment_windows WHERE id = $1`
	var w domain.AssignmentWindow
	if err := scanWindow(q.QueryRow(ctx, query, id), &w); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWindowNotFound
		}
		return nil, fmt.Errorf("querying assignment window: %w", err)
	}
	return &w, nil
}

func (r *pgWindowRepository) Update(ctx context.Context, q dbiface.Querier, id uuid.UUID, patch repository.WindowUpdate) (*domain.AssignmentWindow, error) {
	query := `
		UPDATE assignment_windows
		SET sitter_id = COALESCE($2, sitter_id),
		    start_at = COALESCE($3, start_at),
		    end_at = COALESCE($4, end_at),
		    booking_ref = COALESCE($5, booking_ref),
		    updated_at = $6
		WHERE id = $1
		RETURNING ` + windowColumns
	var w domain.AssignmentWindow
	err := scanWindow(q.QueryRow(ctx, query,
		id, patch.SitterID, patch.StartAt, patch.EndAt, patch.BookingRef, time.Now().UTC(),
	), &w)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWindowNotFound
		}
		return nil, fmt.Errorf("updating assignment window: %w", err)
	}
	return &w, nil
}

func (r *pgWindowRepository) Delete(ctx context.Context, q dbiface.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM assignment_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting assignment window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWindowNotFound
	}
	return nil
}

func (r *pgWindowRepository) ListActiveAt(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, t time.Time) ([]domain.AssignmentWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM assignment_windows
		WHERE thread_id = $1 AND start_at <= $2 AND end_at >= $2
		ORDER BY start_at ASC, id ASC
	`
	rows, err := q.Query(ctx, query, threadID, t)
	if err != nil {
		return nil, fmt.Errorf("querying active windows: %w", err)
	}
	defer rows.Close()
	return collectWindows(rows)
}

func (r *pgWindowRepository) ListCurrentAndFuture(ctx context.Context, q dbiface.Querier, orgID uuid.UUID, asOf time.Time) ([]domain.AssignmentWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM assignment_windows
		WHERE org_id = $1 AND end_at >= $2
		ORDER BY thread_id ASC, start_at ASC, id ASC
	`
	rows, err := q.Query(ctx, query, orgID, asOf)
	if err != nil {
		return nil, fmt.Errorf("querying current and future windows: %w", err)
	}
	defer rows.Close()
	return collectWindows(rows)
}

func (r *pgWindowRepository) UpsertByBookingRef(ctx context.Context, q dbiface.Querier, w *domain.AssignmentWindow) (*domain.AssignmentWindow, bool, error) {
	if w.BookingRef == nil || *w.BookingRef == "" {
		return nil, false, domain.NewValidationError("booking_ref", "required for upsert")
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now().UTC()

	// The partial unique index on (thread_id, booking_ref) makes redelivered
	// booking events update in place instead of duplicating the window.
	query := `
		INSERT INTO assignment_windows (` + windowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (thread_id, booking_ref) WHERE booking_ref IS NOT NULL
		DO UPDATE SET sitter_id = EXCLUDED.sitter_id,
		              start_at = EXCLUDED.start_at,
		              end_at = EXCLUDED.end_at,
		              updated_at = EXCLUDED.updated_at
		RETURNING ` + windowColumns + `, (xmax = 0) AS inserted
	`
	var stored domain.AssignmentWindow
	var inserted bool
	err := q.QueryRow(ctx, query,
		w.ID, w.OrgID, w.ThreadID, w.SitterID,
		w.StartAt, w.EndAt, w.BookingRef, now,
	).Scan(
		&stored.ID, &stored.OrgID, &stored.ThreadID, &stored.SitterID,
		&stored.StartAt, &stored.EndAt, &stored.BookingRef, &stored.CreatedAt, &stored.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upserting assignment window: %w", err)
	}
	return &stored, inserted, nil
}

func (r *pgWindowRepository) DeleteByBookingRef(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, bookingRef string) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM assignment_windows WHERE thread_id = $1 AND booking_ref = $2`,
		threadID, bookingRef,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting windows by booking ref: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectWindows(rows pgx.Rows) ([]domain.AssignmentWindow, error) {
	var windows []domain.AssignmentWindow
	for rows.Next() {
		var w domain.AssignmentWindow
		if err := scanWindow(rows, &w); err != nil {
			return nil, fmt.Errorf("scanning assignment window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}
