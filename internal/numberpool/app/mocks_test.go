package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	coredomain "github.com/pawsline/relay/internal/core/domain"
	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

type mockNumberRepo struct{ mock.Mock }

func (m *mockNumberRepo) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.MessageNumber, error) {
	args := m.Called(ctx, q, id)
	if n := args.Get(0); n != nil {
		return n.(*domain.MessageNumber), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) GetByE164(ctx context.Context, q dbiface.Querier, e164 string) (*domain.MessageNumber, error) {
	args := m.Called(ctx, q, e164)
	if n := args.Get(0); n != nil {
		return n.(*domain.MessageNumber), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) ListAvailableForUpdate(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) ([]domain.MessageNumber, error) {
	args := m.Called(ctx, q, orgID)
	if n := args.Get(0); n != nil {
		return n.([]domain.MessageNumber), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) CountAvailable(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, q, orgID)
	return args.Int(0), args.Error(1)
}

func (m *mockNumberRepo) Claim(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, q, numberID, threadID, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNumberRepo) Release(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, q, numberID, threadID, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNumberRepo) LatestAssignmentForClient(ctx context.Context, q dbiface.Querier, orgID, clientID uuid.UUID, since time.Time) (*domain.NumberAssignment, error) {
	args := m.Called(ctx, q, orgID, clientID, since)
	if a := args.Get(0); a != nil {
		return a.(*domain.NumberAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) OpenAssignment(ctx context.Context, q dbiface.Querier, a *domain.NumberAssignment) (*domain.NumberAssignment, error) {
	args := m.Called(ctx, q, a)
	if r := args.Get(0); r != nil {
		return r.(*domain.NumberAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) CloseAssignment(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time, reason domain.ReleaseReason) error {
	args := m.Called(ctx, q, numberID, threadID, at, reason)
	return args.Error(0)
}

func (m *mockNumberRepo) ListReleaseCandidates(ctx context.Context, q dbiface.Querier) ([]domain.ReleaseCandidate, error) {
	args := m.Called(ctx, q)
	if c := args.Get(0); c != nil {
		return c.([]domain.ReleaseCandidate), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSettingsRepo struct{ mock.Mock }

func (m *mockSettingsRepo) Latest(ctx context.Context, q dbiface.Querier) (*domain.RotationSettings, error) {
	args := m.Called(ctx, q)
	if s := args.Get(0); s != nil {
		return s.(*domain.RotationSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSettingsRepo) Insert(ctx context.Context, q dbiface.Querier, s domain.RotationSettings) (*domain.RotationSettings, error) {
	args := m.Called(ctx, q, s)
	if r := args.Get(0); r != nil {
		return r.(*domain.RotationSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockThreadRepo struct{ mock.Mock }

func (m *mockThreadRepo) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*coredomain.Thread, error) {
	args := m.Called(ctx, q, id)
	if t := args.Get(0); t != nil {
		return t.(*coredomain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadRepo) UpsertByBooking(ctx context.Context, q dbiface.Querier, t *coredomain.Thread) (*coredomain.Thread, bool, error) {
	args := m.Called(ctx, q, t)
	if r := args.Get(0); r != nil {
		return r.(*coredomain.Thread), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockThreadRepo) FindByMessageNumber(ctx context.Context, q dbiface.Querier, numberID uuid.UUID) (*coredomain.Thread, error) {
	args := m.Called(ctx, q, numberID)
	if t := args.Get(0); t != nil {
		return t.(*coredomain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadRepo) FindByBooking(ctx context.Context, q dbiface.Querier, orgID, bookingID uuid.UUID) (*coredomain.Thread, error) {
	args := m.Called(ctx, q, orgID, bookingID)
	if t := args.Get(0); t != nil {
		return t.(*coredomain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreadRepo) BindNumber(ctx context.Context, q dbiface.Querier, threadID, numberID uuid.UUID) error {
	args := m.Called(ctx, q, threadID, numberID)
	return args.Error(0)
}

func (m *mockThreadRepo) UnbindNumber(ctx context.Context, q dbiface.Querier, threadID uuid.UUID) error {
	args := m.Called(ctx, q, threadID)
	return args.Error(0)
}

func (m *mockThreadRepo) TouchActivity(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, q, threadID, at)
	return args.Error(0)
}
