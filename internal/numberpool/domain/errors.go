package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNumberNotFound is returned when a message number does not exist.
	ErrNumberNotFound = errors.New("message number not found")
	// ErrSettingsNotFound is returned when no rotation settings row exists.
	ErrSettingsNotFound = errors.New("rotation settings not found")
)

// PoolExhaustedError is returned when an allocation would drop the unbound
// pool below the configured reserve.
type PoolExhaustedError struct {
	OrgID      uuid.UUID
	Available  int
	MinReserve int
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("pool exhausted for org %s: %d available, reserve %d", e.OrgID, e.Available, e.MinReserve)
}

// IsPoolExhausted reports whether err is a PoolExhaustedError.
func IsPoolExhausted(err error) bool {
	var pe *PoolExhaustedError
	return errors.As(err, &pe)
}
