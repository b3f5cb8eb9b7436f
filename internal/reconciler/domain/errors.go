package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageNotFound is returned when an outbound message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrMaxAttemptsReached is returned when a retry would exceed the
	// configured attempt cap.
	ErrMaxAttemptsReached = errors.New("maximum send attempts reached")
	// ErrClientNotFound is returned when the directory has no number for
	// the client.
	ErrClientNotFound = errors.New("client not found in directory")
)

// ProviderSendError is returned when the SMS provider rejects a send. The
// attempt is still recorded; the message stays retryable.
type ProviderSendError struct {
	Code    string
	Message string
}

func (e *ProviderSendError) Error() string {
	return fmt.Sprintf("provider send failed: %s: %s", e.Code, e.Message)
}

// IsProviderSendError reports whether err is a ProviderSendError.
func IsProviderSendError(err error) bool {
	var pe *ProviderSendError
	return errors.As(err, &pe)
}
