package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	coredomain "github.com/pawsline/relay/internal/core/domain"
	corerepo "github.com/pawsline/relay/internal/core/repository"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/reconciler/domain"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
	routingrepo "github.com/pawsline/relay/internal/routing/repository"
)

// RouteInvalidator drops cached routing state for a thread after its windows
// change. Satisfied by the routing service.
type RouteInvalidator interface {
	InvalidateThread(threadID uuid.UUID)
}

// BookingProcessor reconciles booking events into threads and assignment
// windows. Processing is idempotent end to end: redelivered events land on
// the same upsert keys and simply update in place.
type BookingProcessor struct {
	db          dbiface.DB
	threadRepo  corerepo.ThreadRepository
	windowRepo  routingrepo.WindowRepository
	invalidator RouteInvalidator
	validate    *validator.Validate
	clock       clock.Clock
	logger      *slog.Logger
}

// NewBookingProcessor wires the booking processor.
func NewBookingProcessor(
	db dbiface.DB,
	threadRepo corerepo.ThreadRepository,
	windowRepo routingrepo.WindowRepository,
	invalidator RouteInvalidator,
	clk clock.Clock,
	logger *slog.Logger,
) *BookingProcessor {
	return &BookingProcessor{
		db:          db,
		threadRepo:  threadRepo,
		windowRepo:  windowRepo,
		invalidator: invalidator,
		validate:    validator.New(),
		clock:       clk,
		logger:      logger.With("service", "booking_processor"),
	}
}

// BookingResult describes what a booking event changed.
type BookingResult struct {
	ThreadID      uuid.UUID `json:"thread_id"`
	ThreadCreated bool      `json:"thread_created"`
	WindowCreated bool      `json:"window_created"`
}

// ProcessConfirmed upserts the thread and assignment window for a confirmed
// booking in one transaction. Redelivery of the same event is not an error;
// it updates the existing rows and reports created=false.
func (p *BookingProcessor) ProcessConfirmed(ctx context.Context, ev domain.BookingConfirmedEvent) (*BookingResult, error) {
	if err := p.validate.Struct(ev); err != nil {
		return nil, routingdomain.NewValidationError("event", err.Error())
	}
	if !ev.StartAt.Before(ev.EndAt) {
		return nil, routingdomain.NewValidationError("end_at", "must be after start_at")
	}

	var out BookingResult
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		bookingID := ev.BookingID
		thread, threadCreated, err := p.threadRepo.UpsertByBooking(ctx, tx, &coredomain.Thread{
			OrgID:          ev.OrgID,
			ClientID:       ev.ClientID,
			BookingID:      &bookingID,
			NumberClass:    coredomain.NumberClassPool,
			Status:         coredomain.ThreadStatusActive,
			LastActivityAt: p.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("upserting thread: %w", err)
		}

		bookingRef := ev.BookingRef
		_, windowCreated, err := p.windowRepo.UpsertByBookingRef(ctx, tx, &routingdomain.AssignmentWindow{
			OrgID:      ev.OrgID,
			ThreadID:   thread.ID,
			SitterID:   ev.SitterID,
			StartAt:    ev.StartAt.UTC(),
			EndAt:      ev.EndAt.UTC(),
			BookingRef: &bookingRef,
		})
		if err != nil {
			return fmt.Errorf("upserting window: %w", err)
		}

		out = BookingResult{ThreadID: thread.ID, ThreadCreated: threadCreated, WindowCreated: windowCreated}
		return nil
	})
	if err != nil {
		bookingEventsCounter.WithLabelValues("confirmed", "error").Inc()
		return nil, err
	}

	p.invalidator.InvalidateThread(out.ThreadID)

	outcome := "updated"
	if out.WindowCreated {
		outcome = "created"
	}
	bookingEventsCounter.WithLabelValues("confirmed", outcome).Inc()
	p.logger.InfoContext(ctx, "booking confirmed processed",
		"event_id", ev.EventID, "booking_id", ev.BookingID, "thread_id", out.ThreadID,
		"thread_created", out.ThreadCreated, "window_created", out.WindowCreated)
	return &out, nil
}

// ProcessCancelled removes the window created for the booking. Cancelling a
// booking that never produced a thread or window, or one already cancelled,
// is a no-op success.
func (p *BookingProcessor) ProcessCancelled(ctx context.Context, ev domain.BookingCancelledEvent) error {
	if err := p.validate.Struct(ev); err != nil {
		return routingdomain.NewValidationError("event", err.Error())
	}

	var threadID uuid.UUID
	var deleted int64
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		thread, err := p.threadRepo.FindByBooking(ctx, tx, ev.OrgID, ev.BookingID)
		if err != nil {
			return fmt.Errorf("resolving thread for booking: %w", err)
		}
		if thread == nil {
			return nil
		}
		threadID = thread.ID

		deleted, err = p.windowRepo.DeleteByBookingRef(ctx, tx, thread.ID, ev.BookingRef)
		if err != nil {
			return fmt.Errorf("deleting window: %w", err)
		}
		return nil
	})
	if err != nil {
		bookingEventsCounter.WithLabelValues("cancelled", "error").Inc()
		return err
	}

	if threadID != uuid.Nil {
		p.invalidator.InvalidateThread(threadID)
	}

	outcome := "noop"
	if deleted > 0 {
		outcome = "deleted"
	}
	bookingEventsCounter.WithLabelValues("cancelled", outcome).Inc()
	p.logger.InfoContext(ctx, "booking cancelled processed",
		"event_id", ev.EventID, "booking_id", ev.BookingID, "windows_deleted", deleted)
	return nil
}
