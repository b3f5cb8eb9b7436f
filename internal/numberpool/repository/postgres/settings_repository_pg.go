package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/numberpool/repository"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

type pgSettingsRepository struct {
	logger *slog.Logger
}

// NewPgSettingsRepository creates the PostgreSQL rotation settings repository.
// Settings rows are append only; the highest version is the current one.
func NewPgSettingsRepository(logger *slog.Logger) repository.SettingsRepository {
	return &pgSettingsRepository{logger: logger.With("component", "settings_repository_pg")}
}

func (r *pgSettingsRepository) Latest(ctx context.Context, q dbiface.Querier) (*domain.RotationSettings, error) {
	query := `
		SELECT version, pool_selection_strategy, sticky_reuse_days, post_booking_grace_hours,
		       inactivity_release_days, max_pool_thread_lifetime_days, min_pool_reserve, created_at
		FROM rotation_settings
		ORDER BY version DESC
		LIMIT 1
	`
	var s domain.RotationSettings
	err := q.QueryRow(ctx, query).Scan(
		&s.Version, &s.PoolSelectionStrategy, &s.StickyReuseDays, &s.PostBookingGraceHours,
		&s.InactivityReleaseDays, &s.MaxPoolThreadLifetimeDays, &s.MinPoolReserve, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("querying rotation settings: %w", err)
	}
	return &s, nil
}

func (r *pgSettingsRepository) Insert(ctx context.Context, q dbiface.Querier, s domain.RotationSettings) (*domain.RotationSettings, error) {
	query := `
		INSERT INTO rotation_settings (
			version, pool_selection_strategy, sticky_reuse_days, post_booking_grace_hours,
			inactivity_release_days, max_pool_thread_lifetime_days, min_pool_reserve
		)
		VALUES ((SELECT COALESCE(MAX(version), 0) + 1 FROM rotation_settings), $1, $2, $3, $4, $5, $6)
		RETURNING version, created_at
	`
	err := q.QueryRow(ctx, query,
		s.PoolSelectionStrategy, s.StickyReuseDays, s.PostBookingGraceHours,
		s.InactivityReleaseDays, s.MaxPoolThreadLifetimeDays, s.MinPoolReserve,
	).Scan(&s.Version, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting rotation settings: %w", err)
	}
	return &s, nil
}
