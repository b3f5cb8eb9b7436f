package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/reconciler/domain"
)

// MessageRepository persists outbound messages and their append-only
// delivery attempts.
type MessageRepository interface {
	CreateOutbound(ctx context.Context, q dbiface.Querier, m *domain.OutboundMessage) (*domain.OutboundMessage, error)
	GetOutbound(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.OutboundMessage, error)
	// RecordAttempt appends the attempt row and updates the message
	// status. The message's provider_message_sid is only filled when it
	// is still NULL, so a later failed attempt cannot erase the SID of an
	// earlier accepted one.
	RecordAttempt(ctx context.Context, q dbiface.Querier, a *domain.DeliveryAttempt) error
	ListAttempts(ctx context.Context, q dbiface.Querier, messageID uuid.UUID) ([]domain.DeliveryAttempt, error)
	LastAttemptNo(ctx context.Context, q dbiface.Querier, messageID uuid.UUID) (int, error)

	// InsertInbound stores the inbound message, returning false when a row
	// with the same provider_message_sid already exists.
	InsertInbound(ctx context.Context, q dbiface.Querier, m *domain.InboundMessage) (bool, error)
}
