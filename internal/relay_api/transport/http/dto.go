package http

import (
	"time"
)

// --- Request DTOs ---

// ResolveRequestDTO asks for a routing decision. A nil timestamp means the
// live decision; simulate uses the same shape with timestamp required.
type ResolveRequestDTO struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Direction string     `json:"direction,omitempty" validate:"omitempty,oneof=inbound outbound"`
}

// CreateWindowRequestDTO creates an assignment window.
type CreateWindowRequestDTO struct {
	OrgID      string     `json:"org_id" validate:"required,uuid"`
	ThreadID   string     `json:"thread_id" validate:"required,uuid"`
	SitterID   string     `json:"sitter_id" validate:"required,uuid"`
	StartAt    time.Time  `json:"start_at" validate:"required"`
	EndAt      time.Time  `json:"end_at" validate:"required"`
	BookingRef *string    `json:"booking_ref,omitempty"`
}

// UpdateWindowRequestDTO partially updates a window. Nil fields keep their
// current value.
type UpdateWindowRequestDTO struct {
	SitterID   *string    `json:"sitter_id,omitempty" validate:"omitempty,uuid"`
	StartAt    *time.Time `json:"start_at,omitempty"`
	EndAt      *time.Time `json:"end_at,omitempty"`
	BookingRef *string    `json:"booking_ref,omitempty"`
}

// CreateOverrideRequestDTO creates a manual routing override.
type CreateOverrideRequestDTO struct {
	OrgID           string  `json:"org_id" validate:"required,uuid"`
	Target          string  `json:"target" validate:"required,oneof=owner_inbox sitter client"`
	TargetID        *string `json:"target_id,omitempty" validate:"omitempty,uuid"`
	DurationHours   *int    `json:"duration_hours,omitempty"`
	Reason          string  `json:"reason" validate:"required"`
	CreatedByUserID string  `json:"created_by_user_id" validate:"required,uuid"`
}

// UpdateRotationSettingsRequestDTO partially updates rotation settings.
type UpdateRotationSettingsRequestDTO struct {
	PoolSelectionStrategy     *string `json:"pool_selection_strategy,omitempty" validate:"omitempty,oneof=LRU FIFO RANDOM"`
	StickyReuseDays           *int    `json:"sticky_reuse_days,omitempty"`
	PostBookingGraceHours     *int    `json:"post_booking_grace_hours,omitempty"`
	InactivityReleaseDays     *int    `json:"inactivity_release_days,omitempty"`
	MaxPoolThreadLifetimeDays *int    `json:"max_pool_thread_lifetime_days,omitempty"`
	MinPoolReserve            *int    `json:"min_pool_reserve,omitempty"`
}

// AllocateNumberRequestDTO binds a pool number to a thread.
type AllocateNumberRequestDTO struct {
	OrgID    string `json:"org_id" validate:"required,uuid"`
	ClientID string `json:"client_id" validate:"required,uuid"`
}

// SendMessageRequestDTO sends an outbound message on a thread.
type SendMessageRequestDTO struct {
	ThreadID string `json:"thread_id" validate:"required,uuid"`
	Body     string `json:"body" validate:"required"`
}

// InboundSMSRequestDTO is the provider's inbound webhook payload.
type InboundSMSRequestDTO struct {
	From               string `json:"from" validate:"required"`
	To                 string `json:"to" validate:"required"`
	Body               string `json:"body"`
	ProviderMessageSID string `json:"provider_message_sid" validate:"required"`
}

// --- Response DTOs ---

// ErrorResponseDTO is the uniform error body.
type ErrorResponseDTO struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatusResponseDTO is a minimal acknowledgement body.
type StatusResponseDTO struct {
	Status string `json:"status"`
}
