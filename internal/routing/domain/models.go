package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RulesetVersion is stamped on every routing decision so that logged history
// can be correlated with the rule set that produced it. Bump whenever the
// evaluation order or its outcomes change.
const RulesetVersion = "routing.v2"

// RouteTarget is the party a message should be routed to.
type RouteTarget string

const (
	TargetOwnerInbox RouteTarget = "owner_inbox"
	TargetSitter     RouteTarget = "sitter"
	TargetClient     RouteTarget = "client"
)

// Valid reports whether the target is one of the known parties.
func (t RouteTarget) Valid() bool {
	switch t {
	case TargetOwnerInbox, TargetSitter, TargetClient:
		return true
	}
	return false
}

// Value implements driver.Valuer.
func (t RouteTarget) Value() (driver.Value, error) {
	return string(t), nil
}

// Scan implements sql.Scanner.
func (t *RouteTarget) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan RouteTarget: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	if !RouteTarget(strVal).Valid() {
		return fmt.Errorf("unknown RouteTarget value: %s", strVal)
	}
	*t = RouteTarget(strVal)
	return nil
}

// DecisionReason explains why a decision picked its target.
type DecisionReason string

const (
	ReasonOverrideActive          DecisionReason = "override_active"
	ReasonNoActiveWindow          DecisionReason = "no_active_window"
	ReasonSingleWindowMatch       DecisionReason = "single_window_match"
	ReasonConflictMultipleWindows DecisionReason = "conflict_multiple_windows"
)

// Direction of the message being routed, when known.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// WindowStatus is derived from the evaluation time, never stored.
type WindowStatus string

const (
	WindowStatusActive WindowStatus = "active"
	WindowStatusFuture WindowStatus = "future"
	WindowStatusPast   WindowStatus = "past"
)

// AssignmentWindow is a time-bounded binding of a sitter to a thread.
// Invariant: StartAt < EndAt.
type AssignmentWindow struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"org_id"`
	ThreadID   uuid.UUID  `json:"thread_id"`
	SitterID   uuid.UUID  `json:"sitter_id"`
	StartAt    time.Time  `json:"start_at"`
	EndAt      time.Time  `json:"end_at"`
	BookingRef *string    `json:"booking_ref,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Status derives the window state at now over [StartAt, EndAt).
func (w AssignmentWindow) Status(now time.Time) WindowStatus {
	switch {
	case now.Before(w.StartAt):
		return WindowStatusFuture
	case now.Before(w.EndAt):
		return WindowStatusActive
	default:
		return WindowStatusPast
	}
}

// CoversAt reports whether the window is active for routing at t. The end
// bound is inclusive here: a message arriving exactly at EndAt still routes
// to the sitter.
func (w AssignmentWindow) CoversAt(t time.Time) bool {
	return !t.Before(w.StartAt) && !t.After(w.EndAt)
}

// RoutingOverride is a manual, time-bounded decision that preempts window
// logic. EndsAt nil means open-ended; RemovedAt non-nil means soft-deleted.
type RoutingOverride struct {
	ID              uuid.UUID   `json:"id"`
	OrgID           uuid.UUID   `json:"org_id"`
	ThreadID        uuid.UUID   `json:"thread_id"`
	TargetType      RouteTarget `json:"target_type"`
	TargetID        *uuid.UUID  `json:"target_id,omitempty"`
	StartsAt        time.Time   `json:"starts_at"`
	EndsAt          *time.Time  `json:"ends_at,omitempty"`
	Reason          string      `json:"reason"`
	CreatedByUserID uuid.UUID   `json:"created_by_user_id"`
	CreatedAt       time.Time   `json:"created_at"`
	RemovedAt       *time.Time  `json:"removed_at,omitempty"`
}

// ActiveAt reports whether the override applies at t.
func (o RoutingOverride) ActiveAt(t time.Time) bool {
	if o.RemovedAt != nil {
		return false
	}
	if t.Before(o.StartsAt) {
		return false
	}
	return o.EndsAt == nil || t.Before(*o.EndsAt)
}

// WindowConflict is a pair of windows on the same thread that overlap in
// time. Conflicts are reported as data, never raised as errors.
type WindowConflict struct {
	ThreadID     uuid.UUID        `json:"thread_id"`
	WindowA      AssignmentWindow `json:"window_a"`
	WindowB      AssignmentWindow `json:"window_b"`
	OverlapStart time.Time        `json:"overlap_start"`
	OverlapEnd   time.Time        `json:"overlap_end"`
}

// TraceStep records one rule evaluation inside a decision.
type TraceStep struct {
	Rule   string `json:"rule"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Snapshot captures the raw inputs a decision was computed from, for audit
// and replay.
type Snapshot struct {
	ThreadID   uuid.UUID   `json:"thread_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Direction  Direction   `json:"direction,omitempty"`
	OverrideID *uuid.UUID  `json:"override_id,omitempty"`
	WindowIDs  []uuid.UUID `json:"window_ids"`
}

// RoutingDecision is the outcome of resolving a thread at a point in time.
// Derived, not persisted as state; logged append-only for history.
type RoutingDecision struct {
	Target         RouteTarget    `json:"target"`
	TargetID       *uuid.UUID     `json:"target_id,omitempty"`
	Reason         DecisionReason `json:"reason"`
	Trace          []TraceStep    `json:"evaluation_trace"`
	RulesetVersion string         `json:"ruleset_version"`
	EvaluatedAt    time.Time      `json:"evaluated_at"`
	Inputs         Snapshot       `json:"inputs_snapshot"`
}
