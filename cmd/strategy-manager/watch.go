package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/algomatic/strategy-manager/internal/config"
	"github.com/algomatic/strategy-manager/internal/redisbus"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print strategy manager events published on Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.Redis.Enabled() {
				return fmt.Errorf("SM_REDIS_ADDR is required")
			}

			logger := newLogger(cfg.Log.Level)
			bus := redisbus.NewBus(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ChannelPrefix, logger)
			defer bus.Close()

			out := json.NewEncoder(cmd.OutOrStdout())
			return bus.Subscribe(cmd.Context(), func(_ context.Context, e *redisbus.Event) error {
				return out.Encode(e)
			}, redisbus.EventStrategyExecuted, redisbus.EventStrategyGroupCreated)
		},
	}
}
