package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// ExecutionRow represents a row from the strategy_events table.
type ExecutionRow struct {
	ID         int64
	EventName  string
	GroupName  string
	Amount     string
	Vault      string
	RecordedAt time.Time
}

// EventRepo persists execution events.
type EventRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool *pgxpool.Pool, logger *slog.Logger) *EventRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRepo{pool: pool, logger: logger}
}

// executionArgs flattens ev into the insert's positional arguments.
// Amounts are written as decimal text so NUMERIC keeps full precision.
func executionArgs(ev events.ExecuteStrategy) []any {
	amount := "0"
	if ev.Amount != nil {
		amount = ev.Amount.String()
	}
	return []any{ev.EventName(), ev.GroupName, amount, ev.Vault.String()}
}

// RecordExecution inserts ev. It implements service.ExecutionSink.
func (r *EventRepo) RecordExecution(ctx context.Context, ev events.ExecuteStrategy) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO strategy_events (event_name, group_name, amount, vault)
		VALUES ($1, $2, $3::NUMERIC, $4)
	`, executionArgs(ev)...)
	if err != nil {
		return fmt.Errorf("recording execution of group %q: %w", ev.GroupName, err)
	}

	r.logger.Debug("Recorded execution", "group", ev.GroupName, "vault", ev.Vault)
	return nil
}

// ListByGroup returns the most recent executions of groupName, newest first.
func (r *EventRepo) ListByGroup(ctx context.Context, groupName string, limit int) ([]ExecutionRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_name, group_name, amount::TEXT, vault, recorded_at
		FROM strategy_events
		WHERE group_name = $1
		ORDER BY id DESC
		LIMIT $2
	`, groupName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions of group %q: %w", groupName, err)
	}
	defer rows.Close()

	var out []ExecutionRow
	for rows.Next() {
		var e ExecutionRow
		if err := rows.Scan(&e.ID, &e.EventName, &e.GroupName, &e.Amount, &e.Vault, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Event converts the row back into the event it was recorded from.
func (e ExecutionRow) Event() (events.ExecuteStrategy, error) {
	amount, ok := types.ParseAmount(e.Amount)
	if !ok {
		return events.ExecuteStrategy{}, fmt.Errorf("execution %d: invalid amount %q", e.ID, e.Amount)
	}
	return events.ExecuteStrategy{
		GroupName: e.GroupName,
		Amount:    amount,
		Vault:     types.Address(e.Vault),
	}, nil
}
