package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	coredomain "github.com/pawsline/relay/internal/core/domain"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/reconciler/domain"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func confirmedEvent() domain.BookingConfirmedEvent {
	return domain.BookingConfirmedEvent{
		EventID:    uuid.New(),
		OrgID:      uuid.New(),
		BookingID:  uuid.New(),
		BookingRef: "BK-1042",
		ClientID:   uuid.New(),
		SitterID:   uuid.New(),
		StartAt:    time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
	}
}

func TestBookingProcessor_ConfirmedCreatesThreadAndWindow(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	ev := confirmedEvent()
	threadID := uuid.New()

	threadRepo := new(mockThreadRepo)
	windowRepo := new(mockWindowRepo)
	threadRepo.On("UpsertByBooking", mock.Anything, mock.Anything, mock.Anything).
		Return(&coredomain.Thread{ID: threadID, OrgID: ev.OrgID, ClientID: ev.ClientID}, true, nil)
	windowRepo.On("UpsertByBookingRef", mock.Anything, mock.Anything, mock.MatchedBy(func(w *routingdomain.AssignmentWindow) bool {
		return w.ThreadID == threadID && w.SitterID == ev.SitterID && *w.BookingRef == ev.BookingRef
	})).Return(&routingdomain.AssignmentWindow{ID: uuid.New(), ThreadID: threadID}, true, nil)

	db.ExpectBegin()
	db.ExpectCommit()

	inv := &stubInvalidator{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p := NewBookingProcessor(db, threadRepo, windowRepo, inv, clock.Fixed{T: now}, testLogger())

	res, err := p.ProcessConfirmed(context.Background(), ev)
	require.NoError(t, err)

	assert.True(t, res.ThreadCreated)
	assert.True(t, res.WindowCreated)
	assert.Equal(t, []uuid.UUID{threadID}, inv.invalidated)
	require.NoError(t, db.ExpectationsWereMet())
}

func TestBookingProcessor_RedeliveryUpdatesInPlace(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	ev := confirmedEvent()
	threadID := uuid.New()

	threadRepo := new(mockThreadRepo)
	windowRepo := new(mockWindowRepo)
	// The upsert keys absorb the duplicate: same thread, same window.
	threadRepo.On("UpsertByBooking", mock.Anything, mock.Anything, mock.Anything).
		Return(&coredomain.Thread{ID: threadID, OrgID: ev.OrgID}, false, nil)
	windowRepo.On("UpsertByBookingRef", mock.Anything, mock.Anything, mock.Anything).
		Return(&routingdomain.AssignmentWindow{ID: uuid.New(), ThreadID: threadID}, false, nil)

	db.ExpectBegin()
	db.ExpectCommit()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p := NewBookingProcessor(db, threadRepo, windowRepo, &stubInvalidator{}, clock.Fixed{T: now}, testLogger())

	res, err := p.ProcessConfirmed(context.Background(), ev)
	require.NoError(t, err)

	assert.False(t, res.ThreadCreated)
	assert.False(t, res.WindowCreated)
	require.NoError(t, db.ExpectationsWereMet())
}

func TestBookingProcessor_ConfirmedRejectsInvertedInterval(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	ev := confirmedEvent()
	ev.StartAt, ev.EndAt = ev.EndAt, ev.StartAt

	p := NewBookingProcessor(db, new(mockThreadRepo), new(mockWindowRepo), &stubInvalidator{},
		clock.Fixed{T: time.Now()}, testLogger())

	_, err = p.ProcessConfirmed(context.Background(), ev)
	require.Error(t, err)
	assert.True(t, routingdomain.IsValidation(err))
}

func TestBookingProcessor_CancelDeletesWindow(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	orgID := uuid.New()
	bookingID := uuid.New()
	threadID := uuid.New()

	threadRepo := new(mockThreadRepo)
	windowRepo := new(mockWindowRepo)
	threadRepo.On("FindByBooking", mock.Anything, mock.Anything, orgID, bookingID).
		Return(&coredomain.Thread{ID: threadID, OrgID: orgID}, nil)
	windowRepo.On("DeleteByBookingRef", mock.Anything, mock.Anything, threadID, "BK-1042").
		Return(int64(1), nil)

	db.ExpectBegin()
	db.ExpectCommit()

	inv := &stubInvalidator{}
	p := NewBookingProcessor(db, threadRepo, windowRepo, inv, clock.Fixed{T: time.Now()}, testLogger())

	err = p.ProcessCancelled(context.Background(), domain.BookingCancelledEvent{
		EventID: uuid.New(), OrgID: orgID, BookingID: bookingID, BookingRef: "BK-1042",
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{threadID}, inv.invalidated)
	require.NoError(t, db.ExpectationsWereMet())
}

func TestBookingProcessor_CancelUnknownBookingIsNoop(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	orgID := uuid.New()
	bookingID := uuid.New()

	threadRepo := new(mockThreadRepo)
	windowRepo := new(mockWindowRepo)
	threadRepo.On("FindByBooking", mock.Anything, mock.Anything, orgID, bookingID).Return(nil, nil)

	db.ExpectBegin()
	db.ExpectCommit()

	p := NewBookingProcessor(db, threadRepo, windowRepo, &stubInvalidator{}, clock.Fixed{T: time.Now()}, testLogger())

	err = p.ProcessCancelled(context.Background(), domain.BookingCancelledEvent{
		EventID: uuid.New(), OrgID: orgID, BookingID: bookingID, BookingRef: "BK-9",
	})
	require.NoError(t, err)
	windowRepo.AssertNotCalled(t, "DeleteByBookingRef", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
