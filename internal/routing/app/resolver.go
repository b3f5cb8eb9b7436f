package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/routing/domain"
)

// ResolveInput is the state snapshot a decision is computed from. Callers
// read it inside one transaction so concurrent mutations cannot tear the
// snapshot.
type ResolveInput struct {
	ThreadID  uuid.UUID
	Timestamp time.Time
	Direction domain.Direction

	// Override is the override active at Timestamp, or nil.
	Override *domain.RoutingOverride
	// Windows are the assignment windows covering Timestamp.
	Windows []domain.AssignmentWindow
}

// Resolver turns a state snapshot into a routing decision. It is pure: given
// identical input and clock it always produces the identical decision, which
// is what lets one function back live routing, the simulate endpoint, and
// historical replay.
type Resolver struct {
	clk clock.Clock
}

// NewResolver creates a Resolver stamping EvaluatedAt from clock.
func NewResolver(clk clock.Clock) *Resolver {
	return &Resolver{clk: clk}
}

// Resolve evaluates the routing rules in order: an active override wins
// outright; otherwise window coverage decides. Overlapping windows are not an
// error: they fall back to the owner inbox with the conflict explained in the
// trace.
func (r *Resolver) Resolve(in ResolveInput) domain.RoutingDecision {
	d := domain.RoutingDecision{
		RulesetVersion: domain.RulesetVersion,
		EvaluatedAt:    r.clk.Now(),
		Inputs: domain.Snapshot{
			ThreadID:  in.ThreadID,
			Timestamp: in.Timestamp,
			Direction: in.Direction,
			WindowIDs: windowIDs(in.Windows),
		},
	}

	if in.Override != nil {
		d.Inputs.OverrideID = &in.Override.ID
		d.Target = in.Override.TargetType
		d.TargetID = in.Override.TargetID
		d.Reason = domain.ReasonOverrideActive
		d.Trace = append(d.Trace, domain.TraceStep{
			Rule:   "override_check",
			Passed: true,
			Detail: fmt.Sprintf("override %s active, routing to %s", in.Override.ID, in.Override.TargetType),
		})
		return d
	}

	d.Trace = append(d.Trace, domain.TraceStep{
		Rule:   "override_check",
		Passed: false,
		Detail: "no active override",
	})

	switch len(in.Windows) {
	case 0:
		d.Target = domain.TargetOwnerInbox
		d.Reason = domain.ReasonNoActiveWindow
		d.Trace = append(d.Trace, domain.TraceStep{
			Rule:   "window_check",
			Passed: false,
			Detail: fmt.Sprintf("no assignment window covers %s", in.Timestamp.Format(time.RFC3339)),
		})
	case 1:
		w := in.Windows[0]
		sitterID := w.SitterID
		d.Target = domain.TargetSitter
		d.TargetID = &sitterID
		d.Reason = domain.ReasonSingleWindowMatch
		d.Trace = append(d.Trace, domain.TraceStep{
			Rule:   "window_check",
			Passed: true,
			Detail: fmt.Sprintf("window %s routes to sitter %s", w.ID, w.SitterID),
		})
	default:
		d.Target = domain.TargetOwnerInbox
		d.Reason = domain.ReasonConflictMultipleWindows
		d.Trace = append(d.Trace, domain.TraceStep{
			Rule:   "window_check",
			Passed: false,
			Detail: fmt.Sprintf("%d overlapping windows (%s), falling back to owner inbox", len(in.Windows), joinIDs(d.Inputs.WindowIDs)),
		})
	}
	return d
}

func windowIDs(windows []domain.AssignmentWindow) []uuid.UUID {
	ids := make([]uuid.UUID, len(windows))
	for i, w := range windows {
		ids[i] = w.ID
	}
	// Sorted so identical state always snapshots identically, regardless of
	// the order the store returned rows in.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
