package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

// NumberRepository persists masked numbers and their append-only assignment
// history.
type NumberRepository interface {
	GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.MessageNumber, error)
	GetByE164(ctx context.Context, q dbiface.Querier, e164 string) (*domain.MessageNumber, error)
	// ListAvailableForUpdate returns the org's active, unbound pool
	// numbers with row locks taken (SKIP LOCKED), ordered by purchase
	// date. Callers must be inside a transaction.
	ListAvailableForUpdate(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) ([]domain.MessageNumber, error)
	CountAvailable(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) (int, error)
	// Claim atomically binds an unbound active number to the thread.
	// Returns false when another allocation won the race.
	Claim(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time) (bool, error)
	// Release atomically unbinds the number, but only while it is still
	// bound to the given thread, so a sweep never unbinds a number that
	// was reallocated concurrently.
	Release(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time) (bool, error)

	// LatestAssignmentForClient returns the client's most recent
	// assignment started at or after since, or nil. Backs sticky reuse.
	LatestAssignmentForClient(ctx context.Context, q dbiface.Querier, orgID, clientID uuid.UUID, since time.Time) (*domain.NumberAssignment, error)
	OpenAssignment(ctx context.Context, q dbiface.Querier, a *domain.NumberAssignment) (*domain.NumberAssignment, error)
	CloseAssignment(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time, reason domain.ReleaseReason) error

	// ListReleaseCandidates joins bound pool numbers with the thread
	// activity and latest window end the reclamation rules evaluate.
	ListReleaseCandidates(ctx context.Context, q dbiface.Querier) ([]domain.ReleaseCandidate, error)
}

// SettingsRepository stores rotation settings as an append-only sequence of
// versions; the latest version is the live snapshot.
type SettingsRepository interface {
	Latest(ctx context.Context, q dbiface.Querier) (*domain.RotationSettings, error)
	Insert(ctx context.Context, q dbiface.Querier, s domain.RotationSettings) (*domain.RotationSettings, error)
}
