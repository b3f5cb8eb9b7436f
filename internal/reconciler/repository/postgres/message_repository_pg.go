package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/reconciler/domain"
	"github.com/pawsline/relay/internal/reconciler/repository"
)

const outboundColumns = `id, org_id, thread_id, to_e164, from_e164, body, status, provider_message_sid, created_at, updated_at`

type pgMessageRepository struct {
	logger *slog.Logger
}

// NewPgMessageRepository creates the PostgreSQL message repository.
func NewPgMessageRepository(logger *slog.Logger) repository.MessageRepository {
	return &pgMessageRepository{logger: logger.With("component", "message_repository_pg")}
}

func (r *pgMessageRepository) CreateOutbound(ctx context.Context, q dbiface.Querier, m *domain.OutboundMessage) (*domain.OutboundMessage, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = domain.MessageStatusQueued
	}
	query := `
		INSERT INTO outbound_messages (id, org_id, thread_id, to_e164, from_e164, body, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(ctx, query, m.ID, m.OrgID, m.ThreadID, m.To, m.From, m.Body, m.Status).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting outbound message: %w", err)
	}
	return m, nil
}

func (r *pgMessageRepository) GetOutbound(ctx context.Context, q dbiface.Querier, id uuid.UUID) (*domain.OutboundMessage, error) {
	var m domain.OutboundMessage
	err := q.QueryRow(ctx, `SELECT `+outboundColumns+` FROM outbound_messages WHERE id = $1`, id).Scan(
		&m.ID, &m.OrgID, &m.ThreadID, &m.To, &m.From, &m.Body, &m.Status,
		&m.ProviderMessageSID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("querying outbound message: %w", err)
	}
	return &m, nil
}

func (r *pgMessageRepository) RecordAttempt(ctx context.Context, q dbiface.Querier, a *domain.DeliveryAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO delivery_attempts (id, message_id, attempt_no, status, provider_message_sid, provider_error_code, provider_error_message, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.MessageID, a.AttemptNo, a.Status, a.ProviderMessageSID,
		a.ProviderErrorCode, a.ProviderErrorMessage, a.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery attempt: %w", err)
	}

	// COALESCE keeps a SID set by an earlier accepted attempt.
	tag, err := q.Exec(ctx, `
		UPDATE outbound_messages
		SET status = $2, provider_message_sid = COALESCE(provider_message_sid, $3), updated_at = $4
		WHERE id = $1`,
		a.MessageID, a.Status, a.ProviderMessageSID, a.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("updating outbound message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *pgMessageRepository) ListAttempts(ctx context.Context, q dbiface.Querier, messageID uuid.UUID) ([]domain.DeliveryAttempt, error) {
	query := `
		SELECT id, message_id, attempt_no, status, provider_message_sid, provider_error_code, provider_error_message, attempted_at
		FROM delivery_attempts
		WHERE message_id = $1
		ORDER BY attempt_no ASC
	`
	rows, err := q.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.DeliveryAttempt
	for rows.Next() {
		var a domain.DeliveryAttempt
		err := rows.Scan(&a.ID, &a.MessageID, &a.AttemptNo, &a.Status,
			&a.ProviderMessageSID, &a.ProviderErrorCode, &a.ProviderErrorMessage, &a.AttemptedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *pgMessageRepository) LastAttemptNo(ctx context.Context, q dbiface.Querier, messageID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_no), 0) FROM delivery_attempts WHERE message_id = $1`,
		messageID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("querying last attempt number: %w", err)
	}
	return n, nil
}

func (r *pgMessageRepository) InsertInbound(ctx context.Context, q dbiface.Querier, m *domain.InboundMessage) (bool, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	tag, err := q.Exec(ctx, `
		INSERT INTO inbound_messages (id, thread_id, from_e164, to_e164, body, provider_message_sid, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_message_sid) DO NOTHING`,
		m.ID, m.ThreadID, m.From, m.To, m.Body, m.ProviderMessageSID, m.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting inbound message: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
