package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/algomatic/strategy-manager/pkg/manager"
)

// GroupRow represents a row from the strategy_groups table. Members are
// stored by address.
type GroupRow struct {
	GroupName       string
	FarmStrategies  []string
	HarvestStrategy string
	Collector       string
	Vault           string
	CreatedAt       time.Time
}

// GroupRepo persists strategy group snapshots.
type GroupRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(pool *pgxpool.Pool, logger *slog.Logger) *GroupRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupRepo{pool: pool, logger: logger}
}

func groupRow(g manager.StrategyGroup) GroupRow {
	farms := make([]string, 0, len(g.FarmStrategies))
	for _, addr := range g.FarmStrategyAddresses() {
		farms = append(farms, addr.String())
	}
	row := GroupRow{
		GroupName:      g.Name,
		FarmStrategies: farms,
		Vault:          g.Vault.String(),
	}
	if g.HarvestStrategy != nil {
		row.HarvestStrategy = g.HarvestStrategy.Address().String()
	}
	if g.Collector != nil {
		row.Collector = g.Collector.Address().String()
	}
	return row
}

// SaveGroup upserts a snapshot of g. It implements service.GroupSink.
func (r *GroupRepo) SaveGroup(ctx context.Context, g manager.StrategyGroup) error {
	row := groupRow(g)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO strategy_groups (group_name, farm_strategies, harvest_strategy, collector, vault)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_name) DO UPDATE SET
		  farm_strategies = EXCLUDED.farm_strategies,
		  harvest_strategy = EXCLUDED.harvest_strategy,
		  collector = EXCLUDED.collector,
		  vault = EXCLUDED.vault
	`, row.GroupName, row.FarmStrategies, row.HarvestStrategy, row.Collector, row.Vault)
	if err != nil {
		return fmt.Errorf("saving group %q: %w", g.Name, err)
	}

	r.logger.Debug("Saved group snapshot", "group", g.Name, "farm_strategies", len(row.FarmStrategies))
	return nil
}

// GetGroup returns the stored snapshot of groupName, or nil if absent.
func (r *GroupRepo) GetGroup(ctx context.Context, groupName string) (*GroupRow, error) {
	var g GroupRow
	err := r.pool.QueryRow(ctx, `
		SELECT group_name, farm_strategies, harvest_strategy, collector, vault, created_at
		FROM strategy_groups
		WHERE group_name = $1
	`, groupName).Scan(&g.GroupName, &g.FarmStrategies, &g.HarvestStrategy, &g.Collector, &g.Vault, &g.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting group %q: %w", groupName, err)
	}
	return &g, nil
}
