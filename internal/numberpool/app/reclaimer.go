package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	corerepo "github.com/pawsline/relay/internal/core/repository"
	"github.com/pawsline/relay/internal/numberpool/domain"
	"github.com/pawsline/relay/internal/numberpool/repository"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
)

// ReclaimerService sweeps bound pool numbers and releases the ones whose
// rotation rules say the conversation is over. Sweeps are idempotent: the
// release is a compare-and-swap on the binding, so a candidate reclaimed by
// a concurrent sweep (or reallocated in between) is skipped.
type ReclaimerService struct {
	db           dbiface.DB
	numberRepo   repository.NumberRepository
	threadRepo   corerepo.ThreadRepository
	settingsRepo repository.SettingsRepository
	clock        clock.Clock
	logger       *slog.Logger
}

// NewReclaimerService wires the reclaimer.
func NewReclaimerService(
	db dbiface.DB,
	numberRepo repository.NumberRepository,
	threadRepo corerepo.ThreadRepository,
	settingsRepo repository.SettingsRepository,
	clk clock.Clock,
	logger *slog.Logger,
) *ReclaimerService {
	return &ReclaimerService{
		db:           db,
		numberRepo:   numberRepo,
		threadRepo:   threadRepo,
		settingsRepo: settingsRepo,
		clock:        clk,
		logger:       logger.With("service", "reclaimer"),
	}
}

// Sweep evaluates every bound pool number against the current rotation
// settings and releases the due ones. Returns the number released.
func (s *ReclaimerService) Sweep(ctx context.Context) (int, error) {
	started := s.clock.Now()
	defer func() {
		sweepDurationHist.Observe(s.clock.Now().Sub(started).Seconds())
	}()

	settings, err := s.settingsRepo.Latest(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("loading rotation settings: %w", err)
	}
	candidates, err := s.numberRepo.ListReleaseCandidates(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("listing release candidates: %w", err)
	}

	released := 0
	for _, c := range candidates {
		reason, due := releaseDue(c, *settings, started)
		if !due {
			continue
		}
		ok, err := s.release(ctx, c, reason, started)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to release pool number",
				"number_id", c.Number.ID, "thread_id", c.ThreadID, "reason", reason, "error", err)
			continue
		}
		if ok {
			released++
		}
	}

	s.refreshAvailability(ctx, candidates)

	s.logger.InfoContext(ctx, "reclamation sweep finished",
		"candidates", len(candidates), "released", released, "settings_version", settings.Version)
	return released, nil
}

// refreshAvailability updates the per-org availability gauge after a sweep.
// A failed count is logged and skipped; the sweep outcome stands.
func (s *ReclaimerService) refreshAvailability(ctx context.Context, candidates []domain.ReleaseCandidate) {
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	for _, c := range candidates {
		orgID := c.Number.OrgID
		if _, ok := seen[orgID]; ok {
			continue
		}
		seen[orgID] = struct{}{}
		available, err := s.numberRepo.CountAvailable(ctx, s.db, orgID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to count available pool numbers",
				"org_id", orgID, "error", err)
			continue
		}
		availableGauge.WithLabelValues(orgID.String()).Set(float64(available))
	}
}

// release returns one number to the pool in its own transaction, so one
// failing candidate does not roll back the whole sweep.
func (s *ReclaimerService) release(ctx context.Context, c domain.ReleaseCandidate, reason domain.ReleaseReason, now time.Time) (bool, error) {
	var released bool
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		ok, err := s.numberRepo.Release(ctx, tx, c.Number.ID, c.ThreadID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.numberRepo.CloseAssignment(ctx, tx, c.Number.ID, c.ThreadID, now, reason); err != nil {
			return err
		}
		if err := s.threadRepo.UnbindNumber(ctx, tx, c.ThreadID); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if released {
		releasedCounter.WithLabelValues(string(reason)).Inc()
		s.logger.InfoContext(ctx, "pool number released",
			"number_id", c.Number.ID, "thread_id", c.ThreadID, "reason", reason)
	}
	return released, nil
}

// releaseDue decides whether a bound pool number should be returned to the
// pool at now, and why. Rules, in precedence order:
//
//  1. booking grace: the latest assignment window has ended, the grace
//     period after it has elapsed, and no message activity happened after
//     the window end;
//  2. inactivity: no message activity on the thread for the configured
//     number of days;
//  3. max lifetime: the binding itself has outlived the configured cap,
//     regardless of activity.
func releaseDue(c domain.ReleaseCandidate, settings domain.RotationSettings, now time.Time) (domain.ReleaseReason, bool) {
	if c.LatestWindowEnd != nil {
		graceOver := !now.Before(c.LatestWindowEnd.Add(time.Duration(settings.PostBookingGraceHours) * time.Hour))
		quietSince := !c.LastActivityAt.After(*c.LatestWindowEnd)
		if graceOver && quietSince {
			return domain.ReleaseReasonBookingGrace, true
		}
	}
	if settings.InactivityReleaseDays > 0 && !now.Before(c.LastActivityAt.AddDate(0, 0, settings.InactivityReleaseDays)) {
		return domain.ReleaseReasonInactivity, true
	}
	if !now.Before(c.AssignedAt.AddDate(0, 0, settings.MaxPoolThreadLifetimeDays)) {
		return domain.ReleaseReasonMaxLifetime, true
	}
	return "", false
}
