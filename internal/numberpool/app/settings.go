package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/numberpool/repository"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

// SettingsService manages rotation settings. Every change appends a new
// version; running allocations and sweeps keep the version they loaded.
type SettingsService struct {
	db       dbiface.DB
	repo     repository.SettingsRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSettingsService wires the settings service.
func NewSettingsService(db dbiface.DB, repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		db:       db,
		repo:     repo,
		validate: validator.New(),
		logger:   logger.With("service", "rotation_settings"),
	}
}

// Get returns the current (latest) rotation settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.RotationSettings, error) {
	return s.repo.Latest(ctx, s.db)
}

// UpdateSettingsParams carries a partial settings change. Nil fields keep
// the current value.
type UpdateSettingsParams struct {
	PoolSelectionStrategy     *domain.SelectionStrategy
	StickyReuseDays           *int
	PostBookingGraceHours     *int
	InactivityReleaseDays     *int
	MaxPoolThreadLifetimeDays *int
	MinPoolReserve            *int
}

// Update appends a new settings version built from the latest one with the
// given fields changed. The merged result is validated before insert, so an
// out-of-range field rejects the whole change.
func (s *SettingsService) Update(ctx context.Context, params UpdateSettingsParams) (*domain.RotationSettings, error) {
	var out *domain.RotationSettings
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		current, err := s.repo.Latest(ctx, tx)
		if err != nil {
			return err
		}
		next := *current
		if params.PoolSelectionStrategy != nil {
			next.PoolSelectionStrategy = *params.PoolSelectionStrategy
		}
		if params.StickyReuseDays != nil {
			next.StickyReuseDays = *params.StickyReuseDays
		}
		if params.PostBookingGraceHours != nil {
			next.PostBookingGraceHours = *params.PostBookingGraceHours
		}
		if params.InactivityReleaseDays != nil {
			next.InactivityReleaseDays = *params.InactivityReleaseDays
		}
		if params.MaxPoolThreadLifetimeDays != nil {
			next.MaxPoolThreadLifetimeDays = *params.MaxPoolThreadLifetimeDays
		}
		if params.MinPoolReserve != nil {
			next.MinPoolReserve = *params.MinPoolReserve
		}

		if err := s.validate.Struct(next); err != nil {
			return fmt.Errorf("invalid rotation settings: %w", err)
		}

		out, err = s.repo.Insert(ctx, tx, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "rotation settings updated",
		"version", out.Version, "strategy", out.PoolSelectionStrategy)
	return out, nil
}
