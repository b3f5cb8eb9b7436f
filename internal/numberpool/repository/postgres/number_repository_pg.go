package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/numberpool/repository"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

const numberColumns = `id, org_id, e164, number_class, status, purchase_date, bound_thread_id, last_assigned_at, created_at, updated_at`

type pgNumberRepository struct {
	logger *slog.Logger
}

// NewPgNumberRepository creates the PostgreSQL message number repository.
func NewPgNumberRepository(logger *slog.Logger) repository.NumberRepository {
	return &pgNumberRepository{logger: logger.With("component", "number_repository_pg")}
}

func scanNumber(row pgx.Row, n *domain.MessageNumber) error {
	return row.Scan(
		&n.ID, &n.OrgID, &n.E164, &n.Class, &n.Status, &n.PurchaseDate,
		&n.BoundThreadID, &n.LastAssignedAt, &n.CreatedAt, &n.UpdatedAt,
	)
}

func (r *pgNumberRepository) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.MessageNumber, error) {
	var n domain.MessageNumber
	err := scanNumber(q.QueryRow(ctx, `SELECT `+numberColumns+` FROM message_numbers WHERE id = $1`, id), &n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNumberNotFound
		}
		return nil, fmt.Errorf("querying message number: %w", err)
	}
	return &n, nil
}

func (r *pgNumberRepository) GetByE164(ctx context.Context, q dbiface.Querier, e164 string) (*domain.MessageNumber, error) {
	var n domain.MessageNumber
	err := scanNumber(q.QueryRow(ctx, `SELECT `+numberColumns+` FROM message_numbers WHERE e164 = $1`, e164), &n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNumberNotFound
		}
		return nil, fmt.Errorf("querying message number by e164: %w", err)
	}
	return &n, nil
}

func (r *pgNumberRepository) ListAvailableForUpdate(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) ([]domain.MessageNumber, error) {
	query := `
		SELECT ` + numberColumns + `
		FROM message_numbers
		WHERE org_id = $1 AND number_class = 'pool' AND status = 'active' AND bound_thread_id IS NULL
		ORDER BY purchase_date ASC, id ASC
		FOR UPDATE SKIP LOCKED
	`
	rows, err := q.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("querying available pool numbers: %w", err)
	}
	defer rows.Close()

	var numbers []domain.MessageNumber
	for rows.Next() {
		var n domain.MessageNumber
		if err := scanNumber(rows, &n); err != nil {
			return nil, fmt.Errorf("scanning message number: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *pgNumberRepository) CountAvailable(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM message_numbers
		 WHERE org_id = $1 AND number_class = 'pool' AND status = 'active' AND bound_thread_id IS NULL`,
		orgID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting available pool numbers: %w", err)
	}
	return count, nil
}

func (r *pgNumberRepository) Claim(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time) (bool, error) {
	// Conditional update is the claim: zero rows means another request
	// bound the number first.
	tag, err := q.Exec(ctx, `
		UPDATE message_numbers
		SET bound_thread_id = $2, last_assigned_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'active' AND bound_thread_id IS NULL`,
		numberID, threadID, at,
	)
	if err != nil {
		return false, fmt.Errorf("claiming message number: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgNumberRepository) Release(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE message_numbers
		SET bound_thread_id = NULL, updated_at = $3
		WHERE id = $1 AND bound_thread_id = $2`,
		numberID, threadID, at,
	)
	if err != nil {
		return false, fmt.Errorf("releasing message number: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgNumberRepository) LatestAssignmentForClient(ctx context.Context, q dbiface.Querier, orgID, clientID uuid.UUID, since time.Time) (*domain.NumberAssignment, error) {
	query := `
		SELECT a.id, a.number_id, a.thread_id, a.client_id, a.assigned_at, a.released_at, a.release_reason
		FROM number_assignments a
		JOIN message_numbers n ON n.id = a.number_id
		WHERE n.org_id = $1 AND a.client_id = $2 AND a.assigned_at >= $3
		ORDER BY a.assigned_at DESC
		LIMIT 1
	`
	var a domain.NumberAssignment
	err := q.QueryRow(ctx, query, orgID, clientID, since).Scan(
		&a.ID, &a.NumberID, &a.ThreadID, &a.ClientID, &a.AssignedAt, &a.ReleasedAt, &a.ReleaseReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest client assignment: %w", err)
	}
	return &a, nil
}

func (r *pgNumberRepository) OpenAssignment(ctx context.Context, q dbiface.Querier, a *domain.NumberAssignment) (*domain.NumberAssignment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO number_assignments (id, number_id, thread_id, client_id, assigned_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.NumberID, a.ThreadID, a.ClientID, a.AssignedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("opening number assignment: %w", err)
	}
	return a, nil
}

func (r *pgNumberRepository) CloseAssignment(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time, reason domain.ReleaseReason) error {
	_, err := q.Exec(ctx, `
		UPDATE number_assignments
		SET released_at = $3, release_reason = $4
		WHERE number_id = $1 AND thread_id = $2 AND released_at IS NULL`,
		numberID, threadID, at, string(reason),
	)
	if err != nil {
		return fmt.Errorf("closing number assignment: %w", err)
	}
	return nil
}

func (r *pgNumberRepository) ListReleaseCandidates(ctx context.Context, q dbiface.Querier) ([]domain.ReleaseCandidate, error) {
	// Bound pool numbers joined with thread activity and the latest
	// assignment window end on the thread. Numbers mid-claim are bound by
	// definition, so the sweep only ever sees settled state.
	query := `
		SELECT ` + prefixedNumberColumns("n") + `,
		       t.id, t.client_id, a.assigned_at, t.last_activity_at,
		       (SELECT MAX(w.end_at) FROM assignment_windows w WHERE w.thread_id = t.id)
		FROM message_numbers n
		JOIN threads t ON t.id = n.bound_thread_id
		JOIN number_assignments a ON a.number_id = n.id AND a.thread_id = t.id AND a.released_at IS NULL
		WHERE n.number_class = 'pool' AND n.bound_thread_id IS NOT NULL
		ORDER BY a.assigned_at ASC
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying release candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ReleaseCandidate
	for rows.Next() {
		var c domain.ReleaseCandidate
		err := rows.Scan(
			&c.Number.ID, &c.Number.OrgID, &c.Number.E164, &c.Number.Class, &c.Number.Status,
			&c.Number.PurchaseDate, &c.Number.BoundThreadID, &c.Number.LastAssignedAt,
			&c.Number.CreatedAt, &c.Number.UpdatedAt,
			&c.ThreadID, &c.ClientID, &c.AssignedAt, &c.LastActivityAt, &c.LatestWindowEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning release candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func prefixedNumberColumns(alias string) string {
	return alias + ".id, " + alias + ".org_id, " + alias + ".e164, " + alias + ".number_class, " +
		alias + ".status, " + alias + ".purchase_date, " + alias + ".bound_thread_id, " +
		alias + ".last_assigned_at, " + alias + ".created_at, " + alias + ".updated_at"
}
