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

	coredomain "github.com/pawsline/relay/internal/core/domain"
	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/numberpool/repository"
)

func setupNumberTest(t *testing.T) (repository.NumberRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgNumberRepository(logger), mockPool
}

func numberRow(mockPool pgxmock.PgxPoolIface, id uuid.UUID, e164 string) *pgxmock.Rows {
	now := time.Now().UTC()
	return mockPool.NewRows([]string{
		"id", "org_id", "e164", "number_class", "status", "purchase_date",
		"bound_thread_id", "last_assigned_at", "created_at", "updated_at",
	}).AddRow(
		id, uuid.New(), e164, coredomain.NumberClassPool, domain.NumberStatusActive, now.Add(-30*24*time.Hour),
		(*uuid.UUID)(nil), (*time.Time)(nil), now, now,
	)
}

func TestPgNumberRepository_GetByE164(t *testing.T) {
	repo, mockPool := setupNumberTest(t)
	defer mockPool.Close()

	t.Run("Found", func(t *testing.T) {
		numberID := uuid.New()
		mockPool.ExpectQuery(`SELECT .+ FROM message_numbers WHERE e164 = \$1`).
			WithArgs("+15559990000").
			WillReturnRows(numberRow(mockPool, numberID, "+15559990000"))

		n, err := repo.GetByE164(context.Background(), mockPool, "+15559990000")
		require.NoError(t, err)
		assert.Equal(t, numberID, n.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT .+ FROM message_numbers WHERE e164 = \$1`).
			WithArgs("+15550000000").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByE164(context.Background(), mockPool, "+15550000000")
		assert.ErrorIs(t, err, domain.ErrNumberNotFound)
	})
}

func TestPgNumberRepository_Claim(t *testing.T) {
	repo, mockPool := setupNumberTest(t)
	defer mockPool.Close()

	numberID := uuid.New()
	threadID := uuid.New()
	at := time.Now().UTC()

	t.Run("Won", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE message_numbers\s+SET bound_thread_id = \$2`).
			WithArgs(numberID, threadID, at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		claimed, err := repo.Claim(context.Background(), mockPool, numberID, threadID, at)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("LostRace", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE message_numbers\s+SET bound_thread_id = \$2`).
			WithArgs(numberID, threadID, at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		claimed, err := repo.Claim(context.Background(), mockPool, numberID, threadID, at)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestPgNumberRepository_ReleaseIsGuardedByBinding(t *testing.T) {
	repo, mockPool := setupNumberTest(t)
	defer mockPool.Close()

	numberID := uuid.New()
	threadID := uuid.New()
	at := time.Now().UTC()

	mockPool.ExpectExec(`UPDATE message_numbers\s+SET bound_thread_id = NULL`).
		WithArgs(numberID, threadID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	released, err := repo.Release(context.Background(), mockPool, numberID, threadID, at)
	require.NoError(t, err)
	assert.False(t, released)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgNumberRepository_LatestAssignmentForClient(t *testing.T) {
	repo, mockPool := setupNumberTest(t)
	defer mockPool.Close()

	orgID := uuid.New()
	clientID := uuid.New()
	since := time.Now().UTC().Add(-30 * 24 * time.Hour)

	t.Run("Found", func(t *testing.T) {
		assignedAt := time.Now().UTC().Add(-48 * time.Hour)
		rows := mockPool.NewRows([]string{
			"id", "number_id", "thread_id", "client_id", "assigned_at", "released_at", "release_reason",
		}).AddRow(
			uuid.New(), uuid.New(), uuid.New(), clientID, assignedAt, (*time.Time)(nil), (*string)(nil),
		)
		mockPool.ExpectQuery(`FROM number_assignments a\s+JOIN message_numbers n`).
			WithArgs(orgID, clientID, since).
			WillReturnRows(rows)

		a, err := repo.LatestAssignmentForClient(context.Background(), mockPool, orgID, clientID, since)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, clientID, a.ClientID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NoneReturnsNil", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM number_assignments a\s+JOIN message_numbers n`).
			WithArgs(orgID, clientID, since).
			WillReturnError(pgx.ErrNoRows)

		a, err := repo.LatestAssignmentForClient(context.Background(), mockPool, orgID, clientID, since)
		require.NoError(t, err)
		assert.Nil(t, a)
	})
}

func TestPgNumberRepository_ListReleaseCandidates(t *testing.T) {
	repo, mockPool := setupNumberTest(t)
	defer mockPool.Close()

	now := time.Now().UTC()
	numberID := uuid.New()
	threadID := uuid.New()
	windowEnd := now.Add(-36 * time.Hour)
	rows := mockPool.NewRows([]string{
		"id", "org_id", "e164", "number_class", "status", "purchase_date",
		"bound_thread_id", "last_assigned_at", "created_at", "updated_at",
		"thread_id", "client_id", "assigned_at", "last_activity_at", "latest_window_end",
	}).AddRow(
		numberID, uuid.New(), "+15559990000", coredomain.NumberClassPool, domain.NumberStatusActive, now.Add(-60*24*time.Hour),
		&threadID, &now, now, now,
		threadID, uuid.New(), now.Add(-40*time.Hour), now.Add(-38*time.Hour), &windowEnd,
	)

	mockPool.ExpectQuery(`FROM message_numbers n\s+JOIN threads t`).
		WillReturnRows(rows)

	candidates, err := repo.ListReleaseCandidates(context.Background(), mockPool)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, numberID, candidates[0].Number.ID)
	assert.Equal(t, threadID, candidates[0].ThreadID)
	require.NotNil(t, candidates[0].LatestWindowEnd)
	assert.True(t, candidates[0].LatestWindowEnd.Equal(windowEnd))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
