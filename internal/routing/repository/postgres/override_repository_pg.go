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

const overrideColumns = `id, org_id, thread_id, target_type, target_id, starts_at, ends_at, reason, created_by_user_id, created_at, removed_at`

type pgOverrideRepository struct {
	logger *slog.Logger
}

// NewPgOverrideRepository creates the PostgreSQL routing override repository.
func NewPgOverrideRepository(logger *slog.Logger) repository.OverrideRepository {
	return &pgOverrideRepository{logger: logger.With("component", "override_repository_pg")}
}

func scanOverride(row pgx.Row, o *domain.RoutingOverride) error {
	return row.Scan(
		&o.ID, &o.OrgID, &o.ThreadID, &o.TargetType, &o.TargetID,
		&o.StartsAt, &o.EndsAt, &o.Reason, &o.CreatedByUserID, &o.CreatedAt, &o.RemovedAt,
	)
}

func (r *pgOverrideRepository) Create(ctx context.Context, q dbiface.Querier, o *domain.RoutingOverride) (*domain.RoutingOverride, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO routing_overrides (` + overrideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL)
	`
	_, err := q.Exec(ctx, query,
		o.ID, o.OrgID, o.ThreadID, o.TargetType, o.TargetID,
		o.StartsAt, o.EndsAt, o.Reason, o.CreatedByUserID, o.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting routing override: %w", err)
	}
	return o, nil
}

func (r *pgOverrideRepository) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.RoutingOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM routing_overrides WHERE id = $1`
	var o domain.RoutingOverride
	if err := scanOverride(q.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOverrideNotFound
		}
		return nil, fmt.Errorf("querying routing override: %w", err)
	}
	return &o, nil
}

func (r *pgOverrideRepository) ActiveAt(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, t time.Time) (*domain.RoutingOverride, error) {
	// Most-recently-created wins when concurrent creations left more than
	// one live override on the thread.
	query := `
		SELECT ` + overrideColumns + `
		FROM routing_overrides
		WHERE thread_id = $1
		  AND removed_at IS NULL
		  AND starts_at <= $2
		  AND (ends_at IS NULL OR ends_at > $2)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var o domain.RoutingOverride
	if err := scanOverride(q.QueryRow(ctx, query, threadID, t), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active override: %w", err)
	}
	return &o, nil
}

func (r *pgOverrideRepository) Remove(ctx context.Context, q dbiface.Querier, id uuid.UUID, removedAt time.Time) error {
	tag, err := q.Exec(ctx,
		`UPDATE routing_overrides SET removed_at = $2 WHERE id = $1 AND removed_at IS NULL`,
		id, removedAt,
	)
	if err != nil {
		return fmt.Errorf("removing routing override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either absent or already removed; distinguish for the caller.
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM routing_overrides WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking routing override existence: %w", err)
		}
		if !exists {
			return domain.ErrOverrideNotFound
		}
	}
	return nil
}

func (r *pgOverrideRepository) RemoveActiveOverlapping(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, startsAt time.Time, endsAt *time.Time, removedAt time.Time) (int64, error) {
	query := `
		UPDATE routing_overrides
		SET removed_at = $4
		WHERE thread_id = $1
		  AND removed_at IS NULL
		  AND (ends_at IS NULL OR ends_at > $2)
		  AND ($3::timestamptz IS NULL OR starts_at < $3)
	`
	tag, err := q.Exec(ctx, query, threadID, startsAt, endsAt, removedAt)
	if err != nil {
		return 0, fmt.Errorf("removing overlapping overrides: %w", err)
	}
	return tag.RowsAffected(), nil
}
