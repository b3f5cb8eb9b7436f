package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/routing/domain"
	"github.com/pawsline/relay/internal/routing/repository"
)

// CreateOverrideParams are the caller-supplied fields of a new override.
// DurationHours nil means open-ended.
type CreateOverrideParams struct {
	OrgID           uuid.UUID
	ThreadID        uuid.UUID
	Target          domain.RouteTarget
	TargetID        *uuid.UUID
	DurationHours   *int
	Reason          string
	CreatedByUserID uuid.UUID
}

// OverrideService owns manual routing overrides. At most one override is
// active per thread: creating a new one soft-removes whatever it would
// overlap with, inside the same transaction.
type OverrideService struct {
	db           dbiface.DB
	overrideRepo repository.OverrideRepository
	routing      *RoutingService
	clock        clock.Clock
	logger       *slog.Logger
}

// NewOverrideService wires the override service.
func NewOverrideService(db dbiface.DB, overrideRepo repository.OverrideRepository, routing *RoutingService, clk clock.Clock, logger *slog.Logger) *OverrideService {
	return &OverrideService{
		db:           db,
		overrideRepo: overrideRepo,
		routing:      routing,
		clock:        clk,
		logger:       logger.With("service", "overrides"),
	}
}

// Create validates and stores an override starting now.
func (s *OverrideService) Create(ctx context.Context, params CreateOverrideParams) (*domain.RoutingOverride, error) {
	if !params.Target.Valid() {
		return nil, domain.NewValidationError("target", "must be one of owner_inbox, sitter, client")
	}
	if params.Reason == "" {
		return nil, domain.NewValidationError("reason", "required")
	}
	if params.Target != domain.TargetOwnerInbox && params.TargetID == nil {
		return nil, domain.NewValidationError("target_id", "required for sitter and client targets")
	}
	if params.DurationHours != nil && *params.DurationHours <= 0 {
		return nil, domain.NewValidationError("duration_hours", "must be greater than zero")
	}

	now := s.clock.Now()
	var endsAt *time.Time
	if params.DurationHours != nil {
		t := now.Add(time.Duration(*params.DurationHours) * time.Hour)
		endsAt = &t
	}

	override := &domain.RoutingOverride{
		OrgID:           params.OrgID,
		ThreadID:        params.ThreadID,
		TargetType:      params.Target,
		TargetID:        params.TargetID,
		StartsAt:        now,
		EndsAt:          endsAt,
		Reason:          params.Reason,
		CreatedByUserID: params.CreatedByUserID,
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		removed, err := s.overrideRepo.RemoveActiveOverlapping(ctx, tx, params.ThreadID, now, endsAt, now)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.InfoContext(ctx, "superseded overlapping overrides", "thread_id", params.ThreadID, "count", removed)
		}
		override, err = s.overrideRepo.Create(ctx, tx, override)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.routing.InvalidateThread(params.ThreadID)
	s.logger.InfoContext(ctx, "routing override created",
		"override_id", override.ID, "thread_id", override.ThreadID,
		"target", override.TargetType, "ends_at", override.EndsAt, "reason", override.Reason)
	return override, nil
}

// Remove soft-deletes the override.
func (s *OverrideService) Remove(ctx context.Context, id uuid.UUID) error {
	override, err := s.overrideRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := s.overrideRepo.Remove(ctx, s.db, id, s.clock.Now()); err != nil {
		return err
	}
	s.routing.InvalidateThread(override.ThreadID)
	s.logger.InfoContext(ctx, "routing override removed", "override_id", id, "thread_id", override.ThreadID)
	return nil
}
