package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	coredomain "github.com/pawsline/relay/internal/core/domain"
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

// LiveResolver computes routing decisions. Satisfied by the routing service;
// a nil timestamp asks for the live decision.
type LiveResolver interface {
	Resolve(ctx context.Context, threadID uuid.UUID, at *time.Time, direction routingdomain.Direction) (*routingdomain.RoutingDecision, error)
}

// SenderService delivers outbound messages through the masked number,
// recording every attempt in the append-only delivery log.
type SenderService struct {
	db              dbiface.DB
	messageRepo     repository.MessageRepository
	threadRepo      corerepo.ThreadRepository
	numberRepo      poolrepo.NumberRepository
	routing         LiveResolver
	directory       directory.ClientDirectory
	transport       transport.MessageTransport
	clock           clock.Clock
	maxSendAttempts int
	logger          *slog.Logger
}

// NewSenderService wires the sender.
func NewSenderService(
	db dbiface.DB,
	messageRepo repository.MessageRepository,
	threadRepo corerepo.ThreadRepository,
	numberRepo poolrepo.NumberRepository,
	routing LiveResolver,
	dir directory.ClientDirectory,
	tr transport.MessageTransport,
	clk clock.Clock,
	maxSendAttempts int,
	logger *slog.Logger,
) *SenderService {
	return &SenderService{
		db:              db,
		messageRepo:     messageRepo,
		threadRepo:      threadRepo,
		numberRepo:      numberRepo,
		routing:         routing,
		directory:       dir,
		transport:       tr,
		clock:           clk,
		maxSendAttempts: maxSendAttempts,
		logger:          logger.With("service", "sender"),
	}
}

// SendParams is an outbound send request from a staff or sitter surface.
type SendParams struct {
	ThreadID uuid.UUID
	Body     string
}

// Send resolves the thread's current routing target, looks up the real
// destination number, creates the outbound message, and makes the first
// delivery attempt. A provider rejection records a failed attempt and
// returns ProviderSendError; the message stays retryable.
func (s *SenderService) Send(ctx context.Context, params SendParams) (*domain.OutboundMessage, error) {
	if params.Body == "" {
		return nil, routingdomain.NewValidationError("body", "must not be empty")
	}

	thread, err := s.threadRepo.GetByID(ctx, s.db, params.ThreadID)
	if err != nil {
		return nil, err
	}

	decision, err := s.routing.Resolve(ctx, params.ThreadID, nil, routingdomain.DirectionOutbound)
	if err != nil {
		return nil, fmt.Errorf("resolving route: %w", err)
	}

	to, err := s.destinationPhone(ctx, thread.OrgID, decision)
	if err != nil {
		return nil, err
	}
	from, err := s.maskedPhone(ctx, thread)
	if err != nil {
		return nil, err
	}

	var msg *domain.OutboundMessage
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		msg, err = s.messageRepo.CreateOutbound(ctx, tx, &domain.OutboundMessage{
			OrgID:    thread.OrgID,
			ThreadID: thread.ID,
			To:       to,
			From:     from,
			Body:     params.Body,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.attempt(ctx, msg, 1)
}

// Retry makes another delivery attempt for a previously failed message.
// Attempt numbers continue from the last recorded one and are capped by
// maxSendAttempts.
func (s *SenderService) Retry(ctx context.Context, messageID uuid.UUID) (*domain.OutboundMessage, error) {
	msg, err := s.messageRepo.GetOutbound(ctx, s.db, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Status == domain.MessageStatusSent {
		return msg, nil
	}

	last, err := s.messageRepo.LastAttemptNo(ctx, s.db, messageID)
	if err != nil {
		return nil, err
	}
	if last >= s.maxSendAttempts {
		return nil, domain.ErrMaxAttemptsReached
	}
	return s.attempt(ctx, msg, last+1)
}

// Attempts returns the message's delivery attempt log, oldest first.
func (s *SenderService) Attempts(ctx context.Context, messageID uuid.UUID) ([]domain.DeliveryAttempt, error) {
	if _, err := s.messageRepo.GetOutbound(ctx, s.db, messageID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListAttempts(ctx, s.db, messageID)
}

// attempt performs one provider send and appends the attempt row. The
// attempt is recorded whether the provider accepted or rejected.
func (s *SenderService) attempt(ctx context.Context, msg *domain.OutboundMessage, attemptNo int) (*domain.OutboundMessage, error) {
	result, err := s.transport.Send(ctx, msg.To, msg.From, msg.Body)
	now := s.clock.Now()

	att := domain.DeliveryAttempt{
		MessageID:   msg.ID,
		AttemptNo:   attemptNo,
		AttemptedAt: now,
	}
	var sendErr error
	switch {
	case err != nil:
		att.Status = domain.MessageStatusFailed
		code := "transport_error"
		message := err.Error()
		att.ProviderErrorCode = &code
		att.ProviderErrorMessage = &message
		sendErr = &domain.ProviderSendError{Code: code, Message: message}
	case !result.Success:
		att.Status = domain.MessageStatusFailed
		att.ProviderErrorCode = &result.ErrorCode
		att.ProviderErrorMessage = &result.ErrorMessage
		sendErr = &domain.ProviderSendError{Code: result.ErrorCode, Message: result.ErrorMessage}
	default:
		att.Status = domain.MessageStatusSent
		att.ProviderMessageSID = &result.MessageSID
	}

	recErr := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.messageRepo.RecordAttempt(ctx, tx, &att); err != nil {
			return err
		}
		return s.threadRepo.TouchActivity(ctx, tx, msg.ThreadID, now)
	})
	if recErr != nil {
		return nil, fmt.Errorf("recording delivery attempt: %w", recErr)
	}

	sendAttemptsCounter.WithLabelValues(string(att.Status)).Inc()
	s.logger.InfoContext(ctx, "delivery attempt recorded",
		"message_id", msg.ID, "attempt_no", attemptNo, "status", att.Status, "transport", s.transport.Name())

	if sendErr != nil {
		return nil, sendErr
	}
	return s.messageRepo.GetOutbound(ctx, s.db, msg.ID)
}

// destinationPhone maps a routing decision to a real phone number.
func (s *SenderService) destinationPhone(ctx context.Context, orgID uuid.UUID, d *routingdomain.RoutingDecision) (string, error) {
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

// maskedPhone is the thread's masked sender number.
func (s *SenderService) maskedPhone(ctx context.Context, thread *coredomain.Thread) (string, error) {
	if thread.MessageNumberID == nil {
		return "", routingdomain.NewValidationError("thread", "has no masked number bound")
	}
	number, err := s.numberRepo.GetByID(ctx, s.db, *thread.MessageNumberID)
	if err != nil {
		return "", fmt.Errorf("loading masked number: %w", err)
	}
	return number.E164, nil
}
