package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/routing/domain"
)

// WindowUpdate is a partial update of an assignment window. Nil fields are
// left untouched.
type WindowUpdate struct {
	SitterID   *uuid.UUID
	StartAt    *time.Time
	EndAt      *time.Time
	BookingRef *string
}

// WindowRepository persists assignment windows. Methods accept a Querier so
// callers decide the transaction boundary.
type WindowRepository interface {
	Create(ctx context.Context, q dbiface.Querier, w *domain.AssignmentWindow) (*domain.AssignmentWindow, error)
	GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.AssignmentWindow, error)
	Update(ctx context.Context, q dbiface.Querier, id uuid.UUID, patch WindowUpdate) (*domain.AssignmentWindow, error)
	Delete(ctx context.Context, q dbiface.Querier, id uuid.UUID) error
	// ListActiveAt returns windows covering t for the thread, ordered by
	// start time. The end bound is inclusive, matching
	// domain.AssignmentWindow.CoversAt.
	ListActiveAt(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, t time.Time) ([]domain.AssignmentWindow, error)
	// ListCurrentAndFuture returns all org windows that have not ended
	// before asOf, ordered by thread then start time. Input to the
	// conflict sweep.
	ListCurrentAndFuture(ctx context.Context, q dbiface.Querier, orgID uuid.UUID, asOf time.Time) ([]domain.AssignmentWindow, error)
	// UpsertByBookingRef inserts the window or, when a window with the same
	// (thread_id, booking_ref) already exists, updates it in place.
	// Returns the stored window and whether a new row was created.
	UpsertByBookingRef(ctx context.Context, q dbiface.Querier, w *domain.AssignmentWindow) (*domain.AssignmentWindow, bool, error)
	// DeleteByBookingRef removes the window created for a booking, if any.
	DeleteByBookingRef(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, bookingRef string) (int64, error)
}

// OverrideRepository persists routing overrides.
type OverrideRepository interface {
	Create(ctx context.Context, q dbiface.Querier, o *domain.RoutingOverride) (*domain.RoutingOverride, error)
	GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.RoutingOverride, error)
	// ActiveAt returns the override active at t, or nil. When concurrent
	// creations left more than one active, the most recently created wins.
	ActiveAt(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, t time.Time) (*domain.RoutingOverride, error)
	// Remove soft-deletes the override. Removing an already-removed
	// override is a no-op.
	Remove(ctx context.Context, q dbiface.Querier, id uuid.UUID, removedAt time.Time) error
	// RemoveActiveOverlapping soft-deletes every live override on the
	// thread whose interval overlaps [startsAt, endsAt) (endsAt nil means
	// open-ended). Returns the number of overrides removed.
	RemoveActiveOverlapping(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, startsAt time.Time, endsAt *time.Time, removedAt time.Time) (int64, error)
}

// DecisionLogRepository is the append-only audit log of routing decisions.
type DecisionLogRepository interface {
	Append(ctx context.Context, q dbiface.Querier, d *domain.RoutingDecision) error
	ListByThread(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, limit int) ([]domain.RoutingDecision, error)
}
