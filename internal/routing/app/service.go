package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	corerepo "github.com/pawsline/relay/internal/core/repository"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/routing/domain"
	"github.com/pawsline/relay/internal/routing/repository"
)

const defaultHistoryLimit = 50

// EventPublisher is the slice of the message broker the routing service
// needs. Nil publishers are allowed; decisions are then only logged locally.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// RoutingService resolves threads against stored windows and overrides. Live
// resolutions are logged append-only and announced on the broker; simulations
// share the exact same evaluation path but leave no trace behind.
type RoutingService struct {
	db           dbiface.DB
	threadRepo   corerepo.ThreadRepository
	windowRepo   repository.WindowRepository
	overrideRepo repository.OverrideRepository
	decisionLog  repository.DecisionLogRepository
	resolver     *Resolver
	clock        clock.Clock
	cache        *decisionCache
	publisher    EventPublisher
	subject      string
	logger       *slog.Logger
}

// NewRoutingService wires the routing service.
func NewRoutingService(
	db dbiface.DB,
	threadRepo corerepo.ThreadRepository,
	windowRepo repository.WindowRepository,
	overrideRepo repository.OverrideRepository,
	decisionLog repository.DecisionLogRepository,
	clk clock.Clock,
	publisher EventPublisher,
	subject string,
	logger *slog.Logger,
) *RoutingService {
	return &RoutingService{
		db:           db,
		threadRepo:   threadRepo,
		windowRepo:   windowRepo,
		overrideRepo: overrideRepo,
		decisionLog:  decisionLog,
		resolver:     NewResolver(clk),
		clock:        clk,
		cache:        newDecisionCache(),
		publisher:    publisher,
		subject:      subject,
		logger:       logger.With("service", "routing"),
	}
}

// Resolve computes the routing decision for the thread. A nil timestamp
// means "now" (live routing): the result may be served from the per-thread
// cache, is appended to the decision log, and is published for downstream
// audit consumers.
func (s *RoutingService) Resolve(ctx context.Context, threadID uuid.UUID, at *time.Time, direction domain.Direction) (*domain.RoutingDecision, error) {
	started := s.clock.Now()
	live := at == nil
	t := started
	if at != nil {
		t = at.UTC()
	}

	if live {
		if cached, ok := s.cache.get(threadID, started); ok {
			resolveCounter.WithLabelValues(string(cached.Reason), "cached").Inc()
			return &cached, nil
		}
	}

	var decision domain.RoutingDecision
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		in, err := s.snapshot(ctx, tx, threadID, t, direction)
		if err != nil {
			return err
		}
		decision = s.resolver.Resolve(*in)
		if live {
			if err := s.decisionLog.Append(ctx, tx, &decision); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	mode := "simulate"
	if live {
		mode = "live"
		s.cache.set(threadID, decision, started)
		s.publishDecision(ctx, &decision)
	}
	resolveCounter.WithLabelValues(string(decision.Reason), mode).Inc()
	resolveDurationHist.WithLabelValues(mode).Observe(s.clock.Now().Sub(started).Seconds())

	s.logger.InfoContext(ctx, "routing resolved",
		"thread_id", threadID, "timestamp", t, "target", decision.Target,
		"reason", decision.Reason, "live", live)
	return &decision, nil
}

// Simulate evaluates the thread at the given time without logging, caching,
// or publishing. Used by the dry-run endpoint and by replay tooling.
func (s *RoutingService) Simulate(ctx context.Context, threadID uuid.UUID, at time.Time, direction domain.Direction) (*domain.RoutingDecision, error) {
	var decision domain.RoutingDecision
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		in, err := s.snapshot(ctx, tx, threadID, at.UTC(), direction)
		if err != nil {
			return err
		}
		decision = s.resolver.Resolve(*in)
		return nil
	})
	if err != nil {
		return nil, err
	}
	resolveCounter.WithLabelValues(string(decision.Reason), "simulate").Inc()
	return &decision, nil
}

// History returns logged decisions for the thread, newest first.
func (s *RoutingService) History(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.RoutingDecision, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.decisionLog.ListByThread(ctx, s.db, threadID, limit)
}

// InvalidateThread drops the cached live decision, forcing the next resolve
// to recompute from store state. Called after every window or override
// mutation.
func (s *RoutingService) InvalidateThread(threadID uuid.UUID) {
	s.cache.invalidate(threadID)
}

// snapshot reads the override and windows considered by the resolver inside
// the caller's transaction, so the decision sees one consistent state.
func (s *RoutingService) snapshot(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, t time.Time, direction domain.Direction) (*ResolveInput, error) {
	if _, err := s.threadRepo.GetByID(ctx, q, threadID); err != nil {
		return nil, err
	}
	override, err := s.overrideRepo.ActiveAt(ctx, q, threadID, t)
	if err != nil {
		return nil, fmt.Errorf("loading active override: %w", err)
	}
	windows, err := s.windowRepo.ListActiveAt(ctx, q, threadID, t)
	if err != nil {
		return nil, fmt.Errorf("loading active windows: %w", err)
	}
	return &ResolveInput{
		ThreadID:  threadID,
		Timestamp: t,
		Direction: direction,
		Override:  override,
		Windows:   windows,
	}, nil
}

func (s *RoutingService) publishDecision(ctx context.Context, d *domain.RoutingDecision) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(d)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal decision for publish", "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, s.subject, payload); err != nil {
		// Audit publishing is best effort; the decision log row is the
		// durable record.
		s.logger.WarnContext(ctx, "failed to publish routing decision", "error", err, "subject", s.subject)
	}
}
