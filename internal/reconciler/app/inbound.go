package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	corerepo "github.com/pawsline/relay/internal/core/repository"
	poolrepo "github.com/pawsline/relay/internal/numberpool/repository"
	"github.com/pawsline/relay/internal/platform/clock"
	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/reconciler/adapters/directory"
	"github.com/pawsline/relay/internal/reconciler/adapters/transport"
	"github.com/pawsline/relay/internal/reconciler/domain"
	"github.com/pawsline/relay/internal/reconciler/repository"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
)

// InboundService handles SMS arriving on masked numbers: it stores the
// message once, bumps thread activity, resolves the route, and forwards the
// body to the decided party's real number.
type InboundService struct {
	db          dbiface.DB
	messageRepo repository.MessageRepository
	threadRepo  corerepo.ThreadRepository
	numberRepo  poolrepo.NumberRepository
	routing     LiveResolver
	directory   directory.ClientDirectory
	transport   transport.MessageTransport
	clock       clock.Clock
	logger      *slog.Logger
}

// NewInboundService wires the inbound handler.
func NewInboundService(
	db dbiface.DB,
	messageRepo repository.MessageRepository,
	threadRepo corerepo.ThreadRepository,
	numberRepo poolrepo.NumberRepository,
	routing LiveResolver,
	dir directory.ClientDirectory,
	tr transport.MessageTransport,
	clk clock.Clock,
	logger *slog.Logger,
) *InboundService {
	return &InboundService{
		db:          db,
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		numberRepo:  numberRepo,
		routing:     routing,
		directory:   dir,
		transport:   tr,
		clock:       clk,
		logger:      logger.With("service", "inbound"),
	}
}

// InboundParams is the provider's inbound SMS webhook payload.
type InboundParams struct {
	From               string
	To                 string
	Body               string
	ProviderMessageSID string
}

// InboundResult reports what happened to an inbound message.
type InboundResult struct {
	Duplicate bool                          `json:"duplicate"`
	Decision  *routingdomain.RoutingDecision `json:"decision,omitempty"`
}

// Process handles one inbound SMS. A redelivered webhook (same provider SID)
// is acknowledged as a duplicate without re-forwarding.
func (s *InboundService) Process(ctx context.Context, params InboundParams) (*InboundResult, error) {
	if params.ProviderMessageSID == "" {
		return nil, routingdomain.NewValidationError("provider_message_sid", "must not be empty")
	}

	number, err := s.numberRepo.GetByE164(ctx, s.db, params.To)
	if err != nil {
		return nil, fmt.Errorf("looking up masked number %q: %w", params.To, err)
	}
	thread, err := s.threadRepo.FindByMessageNumber(ctx, s.db, number.ID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, routingdomain.ErrThreadNotFound
	}

	now := s.clock.Now()
	inserted := false
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		inserted, err = s.messageRepo.InsertInbound(ctx, tx, &domain.InboundMessage{
			ThreadID:           thread.ID,
			From:               params.From,
			To:                 params.To,
			Body:               params.Body,
			ProviderMessageSID: params.ProviderMessageSID,
			ReceivedAt:         now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		return s.threadRepo.TouchActivity(ctx, tx, thread.ID, now)
	})
	if err != nil {
		inboundCounter.WithLabelValues("error").Inc()
		return nil, err
	}

	if !inserted {
		inboundCounter.WithLabelValues("duplicate").Inc()
		s.logger.InfoContext(ctx, "duplicate inbound message acknowledged",
			"provider_sid", params.ProviderMessageSID, "thread_id", thread.ID)
		return &InboundResult{Duplicate: true}, nil
	}

	decision, err := s.routing.Resolve(ctx, thread.ID, nil, routingdomain.DirectionInbound)
	if err != nil {
		return nil, fmt.Errorf("resolving route: %w", err)
	}

	dest, err := s.forwardPhone(ctx, thread.OrgID, decision)
	if err != nil {
		return nil, err
	}
	result, err := s.transport.Send(ctx, dest, params.To, params.Body)
	if err != nil {
		inboundCounter.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("forwarding inbound message: %w", err)
	}
	if !result.Success {
		inboundCounter.WithLabelValues("error").Inc()
		return nil, &domain.ProviderSendError{Code: result.ErrorCode, Message: result.ErrorMessage}
	}

	inboundCounter.WithLabelValues("forwarded").Inc()
	s.logger.InfoContext(ctx, "inbound message forwarded",
		"thread_id", thread.ID, "target", decision.Target, "reason", decision.Reason)
	return &InboundResult{Decision: decision}, nil
}

// forwardPhone maps the decision to the receiving party's real number.
func (s *InboundService) forwardPhone(ctx context.Context, orgID uuid.UUID, d *routingdomain.RoutingDecision) (string, error) {
	switch d.Target {
	case routingdomain.TargetSitter:
		if d.TargetID == nil {
			return "", fmt.Errorf("sitter decision without target id")
		}
		return s.directory.SitterPhone(ctx, *d.TargetID)
	case routingdomain.TargetClient:
		if d.TargetID == nil {
			return "", fmt.Errorf("client decision without target id")
		}
		return s.directory.ClientPhone(ctx, *d.TargetID)
	default:
		return s.directory.FrontDeskPhone(ctx, orgID)
	}
}
