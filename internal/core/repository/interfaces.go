package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/core/domain"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

// ThreadRepository persists conversation threads. Shared across the routing,
// number pool, and reconciler services.
type ThreadRepository interface {
	GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.Thread, error)
	// UpsertByBooking inserts the thread or, when one already exists for
	// (org_id, booking_id), updates it in place. Returns the stored thread
	// and whether a new row was created. The unique constraint is what
	// makes duplicate booking-confirmed deliveries collapse to one thread.
	UpsertByBooking(ctx context.Context, q dbiface.Querier, t *domain.Thread) (*domain.Thread, bool, error)
	// FindByMessageNumber returns the active thread currently bound to the
	// masked number, or nil.
	FindByMessageNumber(ctx context.Context, q dbiface.Querier, numberID uuid.UUID) (*domain.Thread, error)
	// FindByBooking returns the thread created for the booking, or nil.
	FindByBooking(ctx context.Context, q dbiface.Querier, orgID, bookingID uuid.UUID) (*domain.Thread, error)
	BindNumber(ctx context.Context, q dbiface.Querier, threadID, numberID uuid.UUID) error
	UnbindNumber(ctx context.Context, q dbiface.Querier, threadID uuid.UUID) error
	// TouchActivity bumps last_activity_at, feeding the inactivity release
	// rule of the number pool.
	TouchActivity(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, at time.Time) error
}
