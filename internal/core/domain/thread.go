package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NumberClass categorizes the masked identity a thread speaks through.
type NumberClass string

const (
	NumberClassFrontDesk NumberClass = "front_desk"
	NumberClassSitter    NumberClass = "sitter"
	NumberClassPool      NumberClass = "pool"
)

// Value implements driver.Valuer.
func (nc NumberClass) Value() (driver.Value, error) {
	return string(nc), nil
}

// Scan implements sql.Scanner.
func (nc *NumberClass) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan NumberClass: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	switch NumberClass(strVal) {
	case NumberClassFrontDesk, NumberClassSitter, NumberClassPool:
		*nc = NumberClass(strVal)
		return nil
	default:
		return fmt.Errorf("unknown NumberClass value: %s", strVal)
	}
}

// ThreadStatus is the lifecycle state of a conversation thread.
type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusArchived ThreadStatus = "archived"
)

// Thread is a conversation between a client and the business, bound to at
// most one masked number at a time.
type Thread struct {
	ID              uuid.UUID     `json:"id"`
	OrgID           uuid.UUID     `json:"org_id"`
	ClientID        uuid.UUID     `json:"client_id"`
	BookingID       *uuid.UUID    `json:"booking_id,omitempty"`
	NumberClass     NumberClass   `json:"number_class"`
	MessageNumberID *uuid.UUID    `json:"message_number_id,omitempty"`
	Status          ThreadStatus  `json:"status"`
	LastActivityAt  time.Time     `json:"last_activity_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
