package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/routing/domain"
	"github.com/pawsline/relay/internal/routing/repository"
)

// WindowService owns assignment window CRUD and the conflict scan. Every
// mutation invalidates the thread's cached routing decision; it never
// re-routes by itself.
type WindowService struct {
	db         dbiface.DB
	windowRepo repository.WindowRepository
	routing    *RoutingService
	clock      clock.Clock
	logger     *slog.Logger
}

// NewWindowService wires the window service.
func NewWindowService(db dbiface.DB, windowRepo repository.WindowRepository, routing *RoutingService, clk clock.Clock, logger *slog.Logger) *WindowService {
	return &WindowService{
		db:         db,
		windowRepo: windowRepo,
		routing:    routing,
		clock:      clk,
		logger:     logger.With("service", "windows"),
	}
}

// DeleteResult reports whether the deleted window was covering the wall
// clock at deletion time.
type DeleteResult struct {
	WasActive bool   `json:"was_active"`
	Message   string `json:"message"`
}

// Create validates and stores a new window.
func (s *WindowService) Create(ctx context.Context, w *domain.AssignmentWindow) (*domain.AssignmentWindow, error) {
	if err := validateInterval(w.StartAt, w.EndAt); err != nil {
		return nil, err
	}
	created, err := s.windowRepo.Create(ctx, s.db, w)
	if err != nil {
		return nil, err
	}
	s.routing.InvalidateThread(created.ThreadID)
	s.logger.InfoContext(ctx, "assignment window created",
		"window_id", created.ID, "thread_id", created.ThreadID, "sitter_id", created.SitterID,
		"start_at", created.StartAt, "end_at", created.EndAt)
	return created, nil
}

// Update applies a partial update, re-validating the resulting interval.
func (s *WindowService) Update(ctx context.Context, id uuid.UUID, patch repository.WindowUpdate) (*domain.AssignmentWindow, error) {
	var updated *domain.AssignmentWindow
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		current, err := s.windowRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		start, end := current.StartAt, current.EndAt
		if patch.StartAt != nil {
			start = *patch.StartAt
		}
		if patch.EndAt != nil {
			end = *patch.EndAt
		}
		if err := validateInterval(start, end); err != nil {
			return err
		}
		updated, err = s.windowRepo.Update(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.routing.InvalidateThread(updated.ThreadID)
	s.logger.InfoContext(ctx, "assignment window updated", "window_id", id, "thread_id", updated.ThreadID)
	return updated, nil
}

// Delete removes the window. It does not re-route the thread; it only drops
// the cached decision so the next resolve recomputes.
func (s *WindowService) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	now := s.clock.Now()
	var result DeleteResult
	var threadID uuid.UUID
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		w, err := s.windowRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		threadID = w.ThreadID
		result.WasActive = w.Status(now) == domain.WindowStatusActive
		if result.WasActive {
			result.Message = fmt.Sprintf("deleted active window %s; thread routing will recompute on next message", id)
		} else {
			result.Message = fmt.Sprintf("deleted %s window %s", w.Status(now), id)
		}
		return s.windowRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	s.routing.InvalidateThread(threadID)
	s.logger.InfoContext(ctx, "assignment window deleted", "window_id", id, "thread_id", threadID, "was_active", result.WasActive)
	return &result, nil
}

// Get returns a window by id.
func (s *WindowService) Get(ctx context.Context, id uuid.UUID) (*domain.AssignmentWindow, error) {
	return s.windowRepo.GetByID(ctx, s.db, id)
}

// ListConflicts sweeps the org's current and future windows for overlapping
// pairs on the same thread.
func (s *WindowService) ListConflicts(ctx context.Context, orgID uuid.UUID) ([]domain.WindowConflict, error) {
	windows, err := s.windowRepo.ListCurrentAndFuture(ctx, s.db, orgID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	conflicts := DetectConflicts(windows)
	conflictsDetectedGauge.WithLabelValues(orgID.String()).Set(float64(len(conflicts)))
	return conflicts, nil
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() {
		return domain.NewValidationError("start_at", "required")
	}
	if end.IsZero() {
		return domain.NewValidationError("end_at", "required")
	}
	if !start.Before(end) {
		return domain.NewValidationError("start_at", "must be before end_at")
	}
	return nil
}
