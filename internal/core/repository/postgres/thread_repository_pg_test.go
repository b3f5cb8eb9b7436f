package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsline/relay/internal/core/domain"
	"github.com/pawsline/relay/internal/core/repository"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
)

func setupThreadTest(t *testing.T) (repository.ThreadRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgThreadRepository(logger), mockPool
}

func threadRows(mockPool pgxmock.PgxPoolIface, t domain.Thread) *pgxmock.Rows {
	return mockPool.NewRows([]string{
		"id", "org_id", "client_id", "booking_id", "number_class",
		"message_number_id", "status", "last_activity_at", "created_at", "updated_at",
	}).AddRow(
		t.ID, t.OrgID, t.ClientID, t.BookingID, t.NumberClass,
		t.MessageNumberID, t.Status, t.LastActivityAt, t.CreatedAt, t.UpdatedAt,
	)
}

func TestPgThreadRepository_GetByID(t *testing.T) {
	repo, mockPool := setupThreadTest(t)
	defer mockPool.Close()

	now := time.Now().UTC()
	expected := domain.Thread{
		ID:             uuid.New(),
		OrgID:          uuid.New(),
		ClientID:       uuid.New(),
		NumberClass:    domain.NumberClassPool,
		Status:         domain.ThreadStatusActive,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	t.Run("Found", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT .+ FROM threads WHERE id = \$1`).
			WithArgs(expected.ID).
			WillReturnRows(threadRows(mockPool, expected))

		thread, err := repo.GetByID(context.Background(), mockPool, expected.ID)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, thread.ID)
		assert.Equal(t, domain.NumberClassPool, thread.NumberClass)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		unknownID := uuid.New()
		mockPool.ExpectQuery(`SELECT .+ FROM threads WHERE id = \$1`).
			WithArgs(unknownID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), mockPool, unknownID)
		assert.ErrorIs(t, err, routingdomain.ErrThreadNotFound)
	})
}

func TestPgThreadRepository_UpsertByBooking(t *testing.T) {
	repo, mockPool := setupThreadTest(t)
	defer mockPool.Close()

	t.Run("RequiresBookingID", func(t *testing.T) {
		_, _, err := repo.UpsertByBooking(context.Background(), mockPool, &domain.Thread{})
		assert.Error(t, err)
	})

	t.Run("InsertReportsInserted", func(t *testing.T) {
		bookingID := uuid.New()
		in := &domain.Thread{
			OrgID:       uuid.New(),
			ClientID:    uuid.New(),
			BookingID:   &bookingID,
			NumberClass: domain.NumberClassPool,
			Status:      domain.ThreadStatusActive,
		}
		now := time.Now().UTC()
		rows := mockPool.NewRows([]string{
			"id", "org_id", "client_id", "booking_id", "number_class",
			"message_number_id", "status", "last_activity_at", "created_at", "updated_at", "inserted",
		}).AddRow(
			uuid.New(), in.OrgID, in.ClientID, in.BookingID, in.NumberClass,
			(*uuid.UUID)(nil), in.Status, now, now, now, true,
		)
		mockPool.ExpectQuery(`INSERT INTO threads`).
			WithArgs(pgxmock.AnyArg(), in.OrgID, in.ClientID, in.BookingID, in.NumberClass,
				in.MessageNumberID, in.Status, pgxmock.AnyArg()).
			WillReturnRows(rows)

		stored, inserted, err := repo.UpsertByBooking(context.Background(), mockPool, in)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, in.OrgID, stored.OrgID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgThreadRepository_FindByBookingReturnsNilWhenAbsent(t *testing.T) {
	repo, mockPool := setupThreadTest(t)
	defer mockPool.Close()

	orgID := uuid.New()
	bookingID := uuid.New()
	mockPool.ExpectQuery(`SELECT .+ FROM threads\s+WHERE org_id = \$1 AND booking_id = \$2`).
		WithArgs(orgID, bookingID).
		WillReturnRows(mockPool.NewRows([]string{"id"}))

	thread, err := repo.FindByBooking(context.Background(), mockPool, orgID, bookingID)
	require.NoError(t, err)
	assert.Nil(t, thread)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgThreadRepository_BindNumber(t *testing.T) {
	repo, mockPool := setupThreadTest(t)
	defer mockPool.Close()

	threadID := uuid.New()
	numberID := uuid.New()

	t.Run("Bound", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE threads SET message_number_id = \$2`).
			WithArgs(threadID, numberID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.BindNumber(context.Background(), mockPool, threadID, numberID)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownThread", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE threads SET message_number_id = \$2`).
			WithArgs(threadID, numberID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.BindNumber(context.Background(), mockPool, threadID, numberID)
		assert.ErrorIs(t, err, routingdomain.ErrThreadNotFound)
	})
}

func TestPgThreadRepository_TouchActivityNeverMovesBackwards(t *testing.T) {
	repo, mockPool := setupThreadTest(t)
	defer mockPool.Close()

	threadID := uuid.New()
	at := time.Now().UTC()
	mockPool.ExpectExec(`UPDATE threads SET last_activity_at = GREATEST\(last_activity_at, \$2\)`).
		WithArgs(threadID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.TouchActivity(context.Background(), mockPool, threadID, at)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
