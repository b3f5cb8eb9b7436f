package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	coredomain "github.com/pawsline/relay/internal/core/domain"
	corerepo "github.com/pawsline/relay/internal/core/repository"
	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/numberpool/repository"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

// AllocatorService binds pool numbers to threads. Allocation is a single
// transaction: sticky lookup, reserve check, strategy pick, and the claim all
// see one consistent pool state.
type AllocatorService struct {
	db           dbiface.DB
	numberRepo   repository.NumberRepository
	threadRepo   corerepo.ThreadRepository
	settingsRepo repository.SettingsRepository
	clock        clock.Clock
	rnd          *rand.Rand
	logger       *slog.Logger
}

// NewAllocatorService wires the allocator. rnd backs the RANDOM selection
// strategy and is injected so tests can seed it.
func NewAllocatorService(
	db dbiface.DB,
	numberRepo repository.NumberRepository,
	threadRepo corerepo.ThreadRepository,
	settingsRepo repository.SettingsRepository,
	clk clock.Clock,
	rnd *rand.Rand,
	logger *slog.Logger,
) *AllocatorService {
	return &AllocatorService{
		db:           db,
		numberRepo:   numberRepo,
		threadRepo:   threadRepo,
		settingsRepo: settingsRepo,
		clock:        clk,
		rnd:          rnd,
		logger:       logger.With("service", "allocator"),
	}
}

// Allocation is the outcome of a successful pool allocation.
type Allocation struct {
	Number *domain.MessageNumber `json:"number"`
	Sticky bool                  `json:"sticky"`
}

// Allocate binds a pool number to the thread for the given client. A client
// seen within the sticky reuse period gets their previous number back when it
// is still unbound; otherwise the configured selection strategy picks one of
// the available numbers. The allocation fails with PoolExhaustedError when it
// would drop the unbound pool below the configured reserve.
func (s *AllocatorService) Allocate(ctx context.Context, orgID, threadID, clientID uuid.UUID) (*Allocation, error) {
	now := s.clock.Now()

	var out Allocation
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		settings, err := s.settingsRepo.Latest(ctx, tx)
		if err != nil {
			return fmt.Errorf("loading rotation settings: %w", err)
		}

		thread, err := s.threadRepo.GetByID(ctx, tx, threadID)
		if err != nil {
			return err
		}
		if thread.MessageNumberID != nil {
			// Already allocated; return the existing binding rather
			// than burning a second number on the thread.
			n, err := s.numberRepo.GetByID(ctx, tx, *thread.MessageNumberID)
			if err != nil {
				return err
			}
			out = Allocation{Number: n, Sticky: true}
			return nil
		}

		available, err := s.numberRepo.ListAvailableForUpdate(ctx, tx, orgID)
		if err != nil {
			return err
		}
		if len(available)-1 < settings.MinPoolReserve {
			return &domain.PoolExhaustedError{
				OrgID:      orgID,
				Available:  len(available),
				MinReserve: settings.MinPoolReserve,
			}
		}

		stickyNumberID, err := s.stickyNumberID(ctx, tx, orgID, clientID, settings, now)
		if err != nil {
			return err
		}

		number, sticky, err := s.claimOne(ctx, tx, available, stickyNumberID, settings.PoolSelectionStrategy, threadID, now)
		if err != nil {
			return err
		}
		if number == nil {
			return &domain.PoolExhaustedError{
				OrgID:      orgID,
				Available:  0,
				MinReserve: settings.MinPoolReserve,
			}
		}

		if _, err := s.numberRepo.OpenAssignment(ctx, tx, &domain.NumberAssignment{
			NumberID:   number.ID,
			ThreadID:   threadID,
			ClientID:   clientID,
			AssignedAt: now,
		}); err != nil {
			return err
		}
		if err := s.threadRepo.BindNumber(ctx, tx, threadID, number.ID); err != nil {
			return err
		}

		number.BoundThreadID = &threadID
		number.LastAssignedAt = &now
		out = Allocation{Number: number, Sticky: sticky}

		allocationsCounter.WithLabelValues(string(settings.PoolSelectionStrategy), fmt.Sprintf("%t", sticky)).Inc()
		return nil
	})
	if err != nil {
		if domain.IsPoolExhausted(err) {
			exhaustedCounter.WithLabelValues(orgID.String()).Inc()
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "pool number allocated",
		"org_id", orgID, "thread_id", threadID, "client_id", clientID,
		"number_id", out.Number.ID, "sticky", out.Sticky)
	return &out, nil
}

// stickyNumberID returns the ID of the client's previous number when sticky
// reuse applies, or uuid.Nil.
func (s *AllocatorService) stickyNumberID(
	ctx context.Context,
	q dbiface.Querier,
	orgID, clientID uuid.UUID,
	settings *domain.RotationSettings,
	now time.Time,
) (uuid.UUID, error) {
	if settings.StickyReuseDays <= 0 {
		return uuid.Nil, nil
	}
	since := now.AddDate(0, 0, -settings.StickyReuseDays)
	last, err := s.numberRepo.LatestAssignmentForClient(ctx, q, orgID, clientID, since)
	if err != nil {
		return uuid.Nil, err
	}
	if last == nil {
		return uuid.Nil, nil
	}
	return last.NumberID, nil
}

// claimOne walks the candidate set until a claim lands: the sticky number
// first when present, then per strategy. A lost claim drops the candidate and
// tries the next; nil number means every candidate was lost.
func (s *AllocatorService) claimOne(
	ctx context.Context,
	q dbiface.Querier,
	available []domain.MessageNumber,
	stickyNumberID uuid.UUID,
	strategy domain.SelectionStrategy,
	threadID uuid.UUID,
	now time.Time,
) (*domain.MessageNumber, bool, error) {
	for len(available) > 0 {
		pickIdx, sticky := -1, false
		if stickyNumberID != uuid.Nil {
			for i := range available {
				if available[i].ID == stickyNumberID {
					pickIdx, sticky = i, true
					break
				}
			}
		}
		if pickIdx < 0 {
			pickIdx = pickByStrategy(available, strategy, s.rnd)
		}

		n := available[pickIdx]
		claimed, err := s.numberRepo.Claim(ctx, q, n.ID, threadID, now)
		if err != nil {
			return nil, false, err
		}
		if claimed {
			return &n, sticky, nil
		}
		if sticky {
			stickyNumberID = uuid.Nil
		}
		available = append(available[:pickIdx], available[pickIdx+1:]...)
	}
	return nil, false, nil
}

// pickByStrategy selects an index from a non-empty, purchase-date-ordered
// slice.
func pickByStrategy(available []domain.MessageNumber, strategy domain.SelectionStrategy, rnd *rand.Rand) int {
	switch strategy {
	case domain.StrategyRandom:
		return rnd.Intn(len(available))
	case domain.StrategyFIFO:
		// Rows arrive ordered by purchase date.
		return 0
	default: // LRU
		best := 0
		for i := 1; i < len(available); i++ {
			if olderAssignment(available[i], available[best]) {
				best = i
			}
		}
		return best
	}
}

// olderAssignment reports whether a has been idle longer than b. Numbers
// never assigned sort before any assigned one.
func olderAssignment(a, b domain.MessageNumber) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt == nil:
		return true
	case b.LastAssignedAt == nil:
		return false
	default:
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	}
}

// Release manually returns the thread's pool number to the pool. Idempotent;
// releasing a thread with no bound number is a no-op.
func (s *AllocatorService) Release(ctx context.Context, threadID uuid.UUID) error {
	now := s.clock.Now()
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		thread, err := s.threadRepo.GetByID(ctx, tx, threadID)
		if err != nil {
			return err
		}
		if thread.MessageNumberID == nil || thread.NumberClass != coredomain.NumberClassPool {
			return nil
		}
		released, err := s.numberRepo.Release(ctx, tx, *thread.MessageNumberID, threadID, now)
		if err != nil {
			return err
		}
		if !released {
			return nil
		}
		if err := s.numberRepo.CloseAssignment(ctx, tx, *thread.MessageNumberID, threadID, now, domain.ReleaseReasonManual); err != nil {
			return err
		}
		if err := s.threadRepo.UnbindNumber(ctx, tx, threadID); err != nil {
			return err
		}
		releasedCounter.WithLabelValues(string(domain.ReleaseReasonManual)).Inc()
		s.logger.InfoContext(ctx, "pool number released",
			"thread_id", threadID, "number_id", *thread.MessageNumberID, "reason", domain.ReleaseReasonManual)
		return nil
	})
}
