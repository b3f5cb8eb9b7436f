// Package transport abstracts the SMS provider the reconciler sends through.
package transport

import (
	"context"

	"github.com/pawsline/relay/internal/reconciler/domain"
)

// MessageTransport submits a message to the SMS provider. A rejected send is
// reported in the SendResult, not as an error; errors are reserved for
// transport-level failures (network, marshalling).
type MessageTransport interface {
	Send(ctx context.Context, to, from, body string) (*domain.SendResult, error)
	Name() string
}
