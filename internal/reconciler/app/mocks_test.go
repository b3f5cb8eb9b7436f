package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	coredomain "github.com/pawsline/relay/internal/core/domain"
	pooldomain "github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/reconciler/domain"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
	routingrepo "github.com/pawsline/relay/internal/routing/repository"
)

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

type mockWindowRepo struct{ mock.Mock }

func (m *mockWindowRepo) Create(ctx context.Context, q dbiface.Querier, w *routingdomain.AssignmentWindow) (*routingdomain.AssignmentWindow, error) {
	args := m.Called(ctx, q, w)
	if r := args.Get(0); r != nil {
		return r.(*routingdomain.AssignmentWindow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWindowRepo) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*routingdomain.AssignmentWindow, error) {
	args := m.Called(ctx, q, id)
	if r := args.Get(0); r != nil {
		return r.(*routingdomain.AssignmentWindow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWindowRepo) Update(ctx context.Context, q dbiface.Querier, id uuid.UUID, patch routingrepo.WindowUpdate) (*routingdomain.AssignmentWindow, error) {
	args := m.Called(ctx, q, id, patch)
	if r := args.Get(0); r != nil {
		return r.(*routingdomain.AssignmentWindow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWindowRepo) Delete(ctx context.Context, q dbiface.Querier, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func (m *mockWindowRepo) ListActiveAt(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, t time.Time) ([]routingdomain.AssignmentWindow, error) {
	args := m.Called(ctx, q, threadID, t)
	if r := args.Get(0); r != nil {
		return r.([]routingdomain.AssignmentWindow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWindowRepo) ListCurrentAndFuture(ctx context.Context, q dbiface.Querier, orgID uuid.UUID, asOf time.Time) ([]routingdomain.AssignmentWindow, error) {
	args := m.Called(ctx, q, orgID, asOf)
	if r := args.Get(0); r != nil {
		return r.([]routingdomain.AssignmentWindow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWindowRepo) UpsertByBookingRef(ctx context.Context, q dbiface.Querier, w *routingdomain.AssignmentWindow) (*routingdomain.AssignmentWindow, bool, error) {
	args := m.Called(ctx, q, w)
	if r := args.Get(0); r != nil {
		return r.(*routingdomain.AssignmentWindow), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockWindowRepo) DeleteByBookingRef(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, bookingRef string) (int64, error) {
	args := m.Called(ctx, q, threadID, bookingRef)
	return args.Get(0).(int64), args.Error(1)
}

type mockMessageRepo struct{ mock.Mock }

func (m *mockMessageRepo) CreateOutbound(ctx context.Context, q dbiface.Querier, msg *domain.OutboundMessage) (*domain.OutboundMessage, error) {
	args := m.Called(ctx, q, msg)
	if r := args.Get(0); r != nil {
		return r.(*domain.OutboundMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepo) GetOutbound(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.OutboundMessage, error) {
	args := m.Called(ctx, q, id)
	if r := args.Get(0); r != nil {
		return r.(*domain.OutboundMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepo) RecordAttempt(ctx context.Context, q dbiface.Querier, a *domain.DeliveryAttempt) error {
	args := m.Called(ctx, q, a)
	return args.Error(0)
}

func (m *mockMessageRepo) ListAttempts(ctx context.Context, q dbiface.Querier, messageID uuid.UUID) ([]domain.DeliveryAttempt, error) {
	args := m.Called(ctx, q, messageID)
	if r := args.Get(0); r != nil {
		return r.([]domain.DeliveryAttempt), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepo) LastAttemptNo(ctx context.Context, q dbiface.Querier, messageID uuid.UUID) (int, error) {
	args := m.Called(ctx, q, messageID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageRepo) InsertInbound(ctx context.Context, q dbiface.Querier, msg *domain.InboundMessage) (bool, error) {
	args := m.Called(ctx, q, msg)
	return args.Bool(0), args.Error(1)
}

type mockNumberRepo struct{ mock.Mock }

func (m *mockNumberRepo) GetByID(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*pooldomain.MessageNumber, error) {
	args := m.Called(ctx, q, id)
	if r := args.Get(0); r != nil {
		return r.(*pooldomain.MessageNumber), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) GetByE164(ctx context.Context, q dbiface.Querier, e164 string) (*pooldomain.MessageNumber, error) {
	args := m.Called(ctx, q, e164)
	if r := args.Get(0); r != nil {
		return r.(*pooldomain.MessageNumber), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) ListAvailableForUpdate(ctx context.Context, q dbiface.Querier, orgID uuid.UUID) ([]pooldomain.MessageNumber, error) {
	args := m.Called(ctx, q, orgID)
	if r := args.Get(0); r != nil {
		return r.([]pooldomain.MessageNumber), args.Error(1)
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

func (m *mockNumberRepo) LatestAssignmentForClient(ctx context.Context, q dbiface.Querier, orgID, clientID uuid.UUID, since time.Time) (*pooldomain.NumberAssignment, error) {
	args := m.Called(ctx, q, orgID, clientID, since)
	if r := args.Get(0); r != nil {
		return r.(*pooldomain.NumberAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) OpenAssignment(ctx context.Context, q dbiface.Querier, a *pooldomain.NumberAssignment) (*pooldomain.NumberAssignment, error) {
	args := m.Called(ctx, q, a)
	if r := args.Get(0); r != nil {
		return r.(*pooldomain.NumberAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNumberRepo) CloseAssignment(ctx context.Context, q dbiface.Querier, numberID, threadID uuid.UUID, at time.Time, reason pooldomain.ReleaseReason) error {
	args := m.Called(ctx, q, numberID, threadID, at, reason)
	return args.Error(0)
}

func (m *mockNumberRepo) ListReleaseCandidates(ctx context.Context, q dbiface.Querier) ([]pooldomain.ReleaseCandidate, error) {
	args := m.Called(ctx, q)
	if r := args.Get(0); r != nil {
		return r.([]pooldomain.ReleaseCandidate), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubResolver struct {
	decision *routingdomain.RoutingDecision
	err      error
}

func (s *stubResolver) Resolve(_ context.Context, _ uuid.UUID, _ *time.Time, _ routingdomain.Direction) (*routingdomain.RoutingDecision, error) {
	return s.decision, s.err
}

type stubInvalidator struct {
	invalidated []uuid.UUID
}

func (s *stubInvalidator) InvalidateThread(threadID uuid.UUID) {
	s.invalidated = append(s.invalidated, threadID)
}
