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

	"github.com/pawsline/relay/internal/routing/domain"
	"github.com/pawsline/relay/internal/routing/repository"
)

func setupWindowTest(t *testing.T) (repository.WindowRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgWindowRepository(logger), mockPool
}

func TestPgWindowRepository_GetByID(t *testing.T) {
	repo, mockPool := setupWindowTest(t)
	defer mockPool.Close()

	windowID := uuid.New()

	t.Run("Found", func(t *testing.T) {
		now := time.Now().UTC()
		rows := mockPool.NewRows([]string{
			"id", "org_id", "thread_id", "sitter_id", "start_at", "end_at",
			"booking_ref", "created_at", "updated_at",
		}).AddRow(
			windowID, uuid.New(), uuid.New(), uuid.New(), now, now.Add(2*time.Hour),
			(*string)(nil), now, now,
		)
		mockPool.ExpectQuery(`SELECT .+ FROM assignment_windows WHERE id = \$1`).
			WithArgs(windowID).
			WillReturnRows(rows)

		w, err := repo.GetByID(context.Background(), mockPool, windowID)
		require.NoError(t, err)
		assert.Equal(t, windowID, w.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT .+ FROM assignment_windows WHERE id = \$1`).
			WithArgs(windowID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), mockPool, windowID)
		assert.ErrorIs(t, err, domain.ErrWindowNotFound)
	})
}

func TestPgWindowRepository_UpsertByBookingRef(t *testing.T) {
	repo, mockPool := setupWindowTest(t)
	defer mockPool.Close()

	t.Run("RequiresBookingRef", func(t *testing.T) {
		_, _, err := repo.UpsertByBookingRef(context.Background(), mockPool, &domain.AssignmentWindow{})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("RedeliveryUpdatesInPlace", func(t *testing.T) {
		bookingRef := "BK-2041"
		now := time.Now().UTC()
		in := &domain.AssignmentWindow{
			OrgID:      uuid.New(),
			ThreadID:   uuid.New(),
			SitterID:   uuid.New(),
			StartAt:    now,
			EndAt:      now.Add(3 * time.Hour),
			BookingRef: &bookingRef,
		}
		rows := mockPool.NewRows([]string{
			"id", "org_id", "thread_id", "sitter_id", "start_at", "end_at",
			"booking_ref", "created_at", "updated_at", "inserted",
		}).AddRow(
			uuid.New(), in.OrgID, in.ThreadID, in.SitterID, in.StartAt, in.EndAt,
			in.BookingRef, now.Add(-time.Hour), now, false,
		)
		mockPool.ExpectQuery(`INSERT INTO assignment_windows`).
			WithArgs(pgxmock.AnyArg(), in.OrgID, in.ThreadID, in.SitterID,
				in.StartAt, in.EndAt, in.BookingRef, pgxmock.AnyArg()).
			WillReturnRows(rows)

		stored, inserted, err := repo.UpsertByBookingRef(context.Background(), mockPool, in)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, in.ThreadID, stored.ThreadID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgWindowRepository_DeleteByBookingRefReportsCount(t *testing.T) {
	repo, mockPool := setupWindowTest(t)
	defer mockPool.Close()

	threadID := uuid.New()
	mockPool.ExpectExec(`DELETE FROM assignment_windows WHERE thread_id = \$1 AND booking_ref = \$2`).
		WithArgs(threadID, "BK-2041").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	deleted, err := repo.DeleteByBookingRef(context.Background(), mockPool, threadID, "BK-2041")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgWindowRepository_ListActiveAtIncludesBoundaries(t *testing.T) {
	repo, mockPool := setupWindowTest(t)
	defer mockPool.Close()

	threadID := uuid.New()
	at := time.Now().UTC()
	rows := mockPool.NewRows([]string{
		"id", "org_id", "thread_id", "sitter_id", "start_at", "end_at",
		"booking_ref", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), uuid.New(), threadID, uuid.New(), at.Add(-time.Hour), at, (*string)(nil), at, at).
		AddRow(uuid.New(), uuid.New(), threadID, uuid.New(), at, at.Add(time.Hour), (*string)(nil), at, at)

	mockPool.ExpectQuery(`WHERE thread_id = \$1 AND start_at <= \$2 AND end_at >= \$2`).
		WithArgs(threadID, at).
		WillReturnRows(rows)

	windows, err := repo.ListActiveAt(context.Background(), mockPool, threadID, at)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
