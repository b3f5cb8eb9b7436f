package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingConfirmedEvent arrives from the booking system, over the webhook or
// the broker. EventID makes redeliveries identifiable in logs; the upsert
// keys make them harmless.
type BookingConfirmedEvent struct {
	EventID    uuid.UUID `json:"event_id" validate:"required"`
	OrgID      uuid.UUID `json:"org_id" validate:"required"`
	BookingID  uuid.UUID `json:"booking_id" validate:"required"`
	BookingRef string    `json:"booking_ref" validate:"required"`
	ClientID   uuid.UUID `json:"client_id" validate:"required"`
	SitterID   uuid.UUID `json:"sitter_id" validate:"required"`
	StartAt    time.Time `json:"start_at" validate:"required"`
	EndAt      time.Time `json:"end_at" validate:"required"`
}

// BookingCancelledEvent removes the window created for a booking.
type BookingCancelledEvent struct {
	EventID    uuid.UUID `json:"event_id" validate:"required"`
	OrgID      uuid.UUID `json:"org_id" validate:"required"`
	BookingID  uuid.UUID `json:"booking_id" validate:"required"`
	BookingRef string    `json:"booking_ref" validate:"required"`
}

// MessageStatus is the delivery state of an outbound message.
type MessageStatus string

const (
	MessageStatusQueued MessageStatus = "queued"
	MessageStatusSent   MessageStatus = "sent"
	MessageStatusFailed MessageStatus = "failed"
)

// Value implements driver.Valuer.
func (ms MessageStatus) Value() (driver.Value, error) {
	return string(ms), nil
}

// Scan implements sql.Scanner.
func (ms *MessageStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan MessageStatus: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	switch MessageStatus(strVal) {
	case MessageStatusQueued, MessageStatusSent, MessageStatusFailed:
		*ms = MessageStatus(strVal)
		return nil
	default:
		return fmt.Errorf("unknown MessageStatus value: %s", strVal)
	}
}

// OutboundMessage is a message sent through a masked number. Status moves
// queued -> sent or queued -> failed; ProviderMessageSID is set by the first
// successful provider accept and never overwritten after that.
type OutboundMessage struct {
	ID                 uuid.UUID     `json:"id"`
	OrgID              uuid.UUID     `json:"org_id"`
	ThreadID           uuid.UUID     `json:"thread_id"`
	To                 string        `json:"to"`
	From               string        `json:"from"`
	Body               string        `json:"body"`
	Status             MessageStatus `json:"status"`
	ProviderMessageSID *string       `json:"provider_message_sid,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// DeliveryAttempt is one row of the append-only attempts log. Attempt rows
// are never updated; a retry gets the next AttemptNo.
type DeliveryAttempt struct {
	ID                   uuid.UUID     `json:"id"`
	MessageID            uuid.UUID     `json:"message_id"`
	AttemptNo            int           `json:"attempt_no"`
	Status               MessageStatus `json:"status"`
	ProviderMessageSID   *string       `json:"provider_message_sid,omitempty"`
	ProviderErrorCode    *string       `json:"provider_error_code,omitempty"`
	ProviderErrorMessage *string       `json:"provider_error_message,omitempty"`
	AttemptedAt          time.Time     `json:"attempted_at"`
}

// InboundMessage is a message received on a masked number. Uniqueness on
// ProviderMessageSID is what collapses webhook redeliveries.
type InboundMessage struct {
	ID                 uuid.UUID `json:"id"`
	ThreadID           uuid.UUID `json:"thread_id"`
	From               string    `json:"from"`
	To                 string    `json:"to"`
	Body               string    `json:"body"`
	ProviderMessageSID string    `json:"provider_message_sid"`
	ReceivedAt         time.Time `json:"received_at"`
}

// SendResult is the provider's answer to a send.
type SendResult struct {
	Success      bool
	MessageSID   string
	ErrorCode    string
	ErrorMessage string
}
