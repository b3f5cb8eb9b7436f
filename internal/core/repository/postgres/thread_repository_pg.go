package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/core/domain"
	"github.com/pawsline/relay/internal/core/repository"
	"github.com/pawsline/relay/internal/platform/dbiface"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
)

const threadColumns = `id, org_id, client_id, booking_id, number_class, message_number_id, status, last_activity_at, created_at, updated_at`

type pgThreadRepository struct {
	logger *slog.Logger
}

// NewPgThreadRepository creates the PostgreSQL thread repository.
func NewPgThreadRepository(logger *slog.Logger) repository.ThreadRepository {
	return &pgThreadRepository{logger: logger.With("component", "thread_repository_pg")}
}

func scanThread(row pgx.Row, t *domain.Thread) error {
	return row.Scan(
		&t.ID, &t.OrgID, &t.ClientID, &t.BookingID, &t.NumberClass,
		&t.MessageNumberID, &t.Status, &t.LastActivityAt, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *pgThreadRepository) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.Thread, error) {
	var t domain.Thread
	err := scanThread(q.QueryRow(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = $1`, id), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, routingdomain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	return &t, nil
}

func (r *pgThreadRepository) UpsertByBooking(ctx context.Context, q dbiface.Querier, t *domain.Thread) (*domain.Thread, bool, error) {
	if t.BookingID == nil {
		return nil, false, fmt.Errorf("thread upsert requires a booking id")
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO threads (` + threadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $8)
		ON CONFLICT (org_id, booking_id) WHERE booking_id IS NOT NULL
		DO UPDATE SET client_id = EXCLUDED.client_id,
		              number_class = EXCLUDED.number_class,
		              status = EXCLUDED.status,
		              updated_at = EXCLUDED.updated_at
		RETURNING ` + threadColumns + `, (xmax = 0) AS inserted
	`
	var stored domain.Thread
	var inserted bool
	err := q.QueryRow(ctx, query,
		t.ID, t.OrgID, t.ClientID, t.BookingID, t.NumberClass,
		t.MessageNumberID, t.Status, now,
	).Scan(
		&stored.ID, &stored.OrgID, &stored.ClientID, &stored.BookingID, &stored.NumberClass,
		&stored.MessageNumberID, &stored.Status, &stored.LastActivityAt, &stored.CreatedAt, &stored.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upserting thread: %w", err)
	}
	return &stored, inserted, nil
}

func (r *pgThreadRepository) FindByMessageNumber(ctx context.Context, q dbiface.Querier, numberID uuid.UUID) (*domain.Thread, error) {
	query := `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE message_number_id = $1 AND status = 'active'
		ORDER BY last_activity_at DESC
		LIMIT 1
	`
	var t domain.Thread
	if err := scanThread(q.QueryRow(ctx, query, numberID), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying thread by message number: %w", err)
	}
	return &t, nil
}

func (r *pgThreadRepository) FindByBooking(ctx context.Context, q dbiface.Querier, orgID, bookingID uuid.UUID) (*domain.Thread, error) {
	query := `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE org_id = $1 AND booking_id = $2
	`
	var t domain.Thread
	if err := scanThread(q.QueryRow(ctx, query, orgID, bookingID), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying thread by booking: %w", err)
	}
	return &t, nil
}

func (r *pgThreadRepository) BindNumber(ctx context.Context, q dbiface.Querier, threadID, numberID uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`UPDATE threads SET message_number_id = $2, updated_at = $3 WHERE id = $1`,
		threadID, numberID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("binding number to thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return routingdomain.ErrThreadNotFound
	}
	return nil
}

func (r *pgThreadRepository) UnbindNumber(ctx context.Context, q dbiface.Querier, threadID uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE threads SET message_number_id = NULL, updated_at = $2 WHERE id = $1`,
		threadID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("unbinding number from thread: %w", err)
	}
	return nil
}

func (r *pgThreadRepository) TouchActivity(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE threads SET last_activity_at = GREATEST(last_activity_at, $2), updated_at = $2 WHERE id = $1`,
		threadID, at,
	)
	if err != nil {
		return fmt.Errorf("touching thread activity: %w", err)
	}
	return nil
}
