package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/platform/dbiface"
	"github.com/pawsline/relay/internal/routing/domain"
	"github.com/pawsline/relay/internal/routing/repository"
)

type pgDecisionLogRepository struct {
	logger *slog.Logger
}

// NewPgDecisionLogRepository creates the append-only routing decision log.
func NewPgDecisionLogRepository(logger *slog.Logger) repository.DecisionLogRepository {
	return &pgDecisionLogRepository{logger: logger.With("component", "decision_log_repository_pg")}
}

func (r *pgDecisionLogRepository) Append(ctx context.Context, q dbiface.Querier, d *domain.RoutingDecision) error {
	traceJSON, err := json.Marshal(d.Trace)
	if err != nil {
		return fmt.Errorf("marshaling evaluation trace: %w", err)
	}
	inputsJSON, err := json.Marshal(d.Inputs)
	if err != nil {
		return fmt.Errorf("marshaling inputs snapshot: %w", err)
	}

	query := `
		INSERT INTO routing_decisions (
			id, thread_id, target, target_id, reason, ruleset_version,
			evaluated_at, requested_ts, direction, trace, inputs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = q.Exec(ctx, query,
		uuid.New(), d.Inputs.ThreadID, d.Target, d.TargetID, d.Reason, d.RulesetVersion,
		d.EvaluatedAt, d.Inputs.Timestamp, string(d.Inputs.Direction), traceJSON, inputsJSON,
	)
	if err != nil {
		return fmt.Errorf("appending routing decision: %w", err)
	}
	return nil
}

func (r *pgDecisionLogRepository) ListByThread(ctx context.Context, q dbiface.Querier, threadID uuid.UUID, limit int) ([]domain.RoutingDecision, error) {
	query := `
		SELECT target, target_id, reason, ruleset_version, evaluated_at, trace, inputs
		FROM routing_decisions
		WHERE thread_id = $1
		ORDER BY evaluated_at DESC, id DESC
		LIMIT $2
	`
	rows, err := q.Query(ctx, query, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying routing decisions: %w", err)
	}
	defer rows.Close()

	var decisions []domain.RoutingDecision
	for rows.Next() {
		var d domain.RoutingDecision
		var traceJSON, inputsJSON []byte
		if err := rows.Scan(&d.Target, &d.TargetID, &d.Reason, &d.RulesetVersion, &d.EvaluatedAt, &traceJSON, &inputsJSON); err != nil {
			return nil, fmt.Errorf("scanning routing decision: %w", err)
		}
		if err := json.Unmarshal(traceJSON, &d.Trace); err != nil {
			return nil, fmt.Errorf("unmarshaling evaluation trace: %w", err)
		}
		if err := json.Unmarshal(inputsJSON, &d.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshaling inputs snapshot: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}
