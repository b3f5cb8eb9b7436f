package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	coredomain "github.com/pawsline/relay/internal/core/domain"
)

// NumberStatus is the lifecycle state of a masked number.
type NumberStatus string

const (
	NumberStatusActive      NumberStatus = "active"
	NumberStatusQuarantined NumberStatus = "quarantined"
	NumberStatusReleased    NumberStatus = "released"
)

// Value implements driver.Valuer.
func (ns NumberStatus) Value() (driver.Value, error) {
	return string(ns), nil
}

// Scan implements sql.Scanner.
func (ns *NumberStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan NumberStatus: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	switch NumberStatus(strVal) {
	case NumberStatusActive, NumberStatusQuarantined, NumberStatusReleased:
		*ns = NumberStatus(strVal)
		return nil
	default:
		return fmt.Errorf("unknown NumberStatus value: %s", strVal)
	}
}

// MessageNumber is a provisioned phone number. Pool-class numbers rotate
// between threads; BoundThreadID is the claim that prevents double
// assignment.
type MessageNumber struct {
	ID             uuid.UUID              `json:"id"`
	OrgID          uuid.UUID              `json:"org_id"`
	E164           string                 `json:"e164"`
	Class          coredomain.NumberClass `json:"number_class"`
	Status         NumberStatus           `json:"status"`
	PurchaseDate   time.Time              `json:"purchase_date"`
	BoundThreadID  *uuid.UUID             `json:"bound_thread_id,omitempty"`
	LastAssignedAt *time.Time             `json:"last_assigned_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NumberAssignment is one row of the append-only assignment history. The
// open row (ReleasedAt nil) mirrors the live binding; closed rows feed
// sticky reuse and audit.
type NumberAssignment struct {
	ID            uuid.UUID  `json:"id"`
	NumberID      uuid.UUID  `json:"number_id"`
	ThreadID      uuid.UUID  `json:"thread_id"`
	ClientID      uuid.UUID  `json:"client_id"`
	AssignedAt    time.Time  `json:"assigned_at"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
	ReleaseReason *string    `json:"release_reason,omitempty"`
}

// ReleaseReason explains why a pool number was returned to the pool.
type ReleaseReason string

const (
	ReleaseReasonBookingGrace ReleaseReason = "booking_grace_elapsed"
	ReleaseReasonInactivity   ReleaseReason = "inactivity"
	ReleaseReasonMaxLifetime  ReleaseReason = "max_lifetime"
	ReleaseReasonManual       ReleaseReason = "manual"
)

// SelectionStrategy picks which unbound pool number a new allocation gets.
type SelectionStrategy string

const (
	StrategyLRU    SelectionStrategy = "LRU"
	StrategyFIFO   SelectionStrategy = "FIFO"
	StrategyRandom SelectionStrategy = "RANDOM"
)

// RotationSettings is an immutable, versioned configuration snapshot.
// Allocation and reclamation load the latest version per operation instead
// of consulting mutable global state.
type RotationSettings struct {
	Version                   int64             `json:"version"`
	PoolSelectionStrategy     SelectionStrategy `json:"pool_selection_strategy" validate:"oneof=LRU FIFO RANDOM"`
	StickyReuseDays           int               `json:"sticky_reuse_days" validate:"gte=0"`
	PostBookingGraceHours     int               `json:"post_booking_grace_hours" validate:"gte=0"`
	InactivityReleaseDays     int               `json:"inactivity_release_days" validate:"gte=0"`
	MaxPoolThreadLifetimeDays int               `json:"max_pool_thread_lifetime_days" validate:"gte=1"`
	MinPoolReserve            int               `json:"min_pool_reserve" validate:"gte=0"`
	CreatedAt                 time.Time         `json:"created_at"`
}

// DefaultRotationSettings is the seed configuration for a new install.
func DefaultRotationSettings() RotationSettings {
	return RotationSettings{
		PoolSelectionStrategy:     StrategyLRU,
		StickyReuseDays:           30,
		PostBookingGraceHours:     24,
		InactivityReleaseDays:     30,
		MaxPoolThreadLifetimeDays: 90,
		MinPoolReserve:            2,
	}
}

// ReleaseCandidate is a bound pool number joined with the thread state the
// reclamation rules need.
type ReleaseCandidate struct {
	Number          MessageNumber
	ThreadID        uuid.UUID
	ClientID        uuid.UUID
	AssignedAt      time.Time
	LastActivityAt  time.Time
	LatestWindowEnd *time.Time
}
