package manifest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/algomatic/strategy-manager/internal/directory"
	"github.com/algomatic/strategy-manager/internal/ledger"
	"github.com/algomatic/strategy-manager/pkg/manager"
	"github.com/algomatic/strategy-manager/pkg/strategies/fee"
	"github.com/algomatic/strategy-manager/pkg/strategies/uniswap"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// Admin is the address-level administrative surface a manifest is applied to.
type Admin interface {
	RegisterFarmStrategy(ctx context.Context, name string, addr types.Address) error
	RegisterHarvestStrategy(ctx context.Context, name string, addr types.Address) error
	RegisterCollector(ctx context.Context, name string, addr types.Address) error
	CreateStrategyGroup(ctx context.Context, groupName string, farmNames []string, harvestName, collectorName string) (manager.StrategyGroup, error)
}

// Deploy creates every collaborator the manifest declares and records it in dir.
// Tokens come first so routers and strategies can resolve them.
func Deploy(m *Manifest, dir *directory.Directory, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for _, ts := range m.Tokens {
		tok := ledger.NewToken(types.Address(ts.Address), ts.Symbol)
		for account, raw := range ts.Balances {
			amount, ok := types.ParseAmount(raw)
			if !ok {
				return fmt.Errorf("token %s: invalid balance %q for %s", ts.Address, raw, account)
			}
			tok.Mint(types.Address(account), amount)
		}
		if err := dir.Deploy(tok); err != nil {
			return fmt.Errorf("token %s: %w", ts.Address, err)
		}
	}

	routers := make(map[types.Address]*ledger.Router, len(m.Routers))
	for _, rs := range m.Routers {
		r, err := ledger.NewRouter(types.Address(rs.Address), dir, rs.RateNum, rs.RateDen)
		if err != nil {
			return err
		}
		if err := dir.Deploy(r); err != nil {
			return fmt.Errorf("router %s: %w", rs.Address, err)
		}
		routers[r.Address()] = r
	}

	for _, ss := range m.SwapStrategies {
		r, ok := routers[types.Address(ss.Router)]
		if !ok {
			return fmt.Errorf("swap strategy %s: unknown router %s", ss.Address, ss.Router)
		}
		s := uniswap.New(types.Address(ss.Address), r, uniswap.WithLogger(logger))
		for _, c := range ss.Configs {
			in, ok := dir.Asset(types.Address(c.TokenIn))
			if !ok {
				return fmt.Errorf("swap strategy %s: unknown token %s", ss.Address, c.TokenIn)
			}
			out, ok := dir.Asset(types.Address(c.TokenOut))
			if !ok {
				return fmt.Errorf("swap strategy %s: unknown token %s", ss.Address, c.TokenOut)
			}
			if err := s.Configure(c.Group, in, out); err != nil {
				return fmt.Errorf("swap strategy %s: %w", ss.Address, err)
			}
		}
		if err := dir.Deploy(s); err != nil {
			return fmt.Errorf("swap strategy %s: %w", ss.Address, err)
		}
	}

	for _, hs := range m.HarvestStrategies {
		if err := dir.Deploy(fee.NewHarvestAll(types.Address(hs.Address))); err != nil {
			return fmt.Errorf("harvest strategy %s: %w", hs.Address, err)
		}
	}

	for _, cs := range m.Collectors {
		if err := dir.Deploy(fee.NewCollector(types.Address(cs.Address), types.Address(cs.Vault))); err != nil {
			return fmt.Errorf("collector %s: %w", cs.Address, err)
		}
	}

	logger.Info("Deployed manifest collaborators",
		"tokens", len(m.Tokens),
		"routers", len(m.Routers),
		"swap_strategies", len(m.SwapStrategies),
		"harvest_strategies", len(m.HarvestStrategies),
		"collectors", len(m.Collectors),
	)
	return nil
}

// Apply performs the manifest's registrations and then creates its groups,
// in file order. It stops at the first rejected operation.
func Apply(ctx context.Context, m *Manifest, admin Admin) error {
	for _, r := range m.Register.Farm {
		if err := admin.RegisterFarmStrategy(ctx, r.Name, types.Address(r.Address)); err != nil {
			return fmt.Errorf("registering farm strategy %q: %w", r.Name, err)
		}
	}
	for _, r := range m.Register.Harvest {
		if err := admin.RegisterHarvestStrategy(ctx, r.Name, types.Address(r.Address)); err != nil {
			return fmt.Errorf("registering harvest strategy %q: %w", r.Name, err)
		}
	}
	for _, r := range m.Register.Collector {
		if err := admin.RegisterCollector(ctx, r.Name, types.Address(r.Address)); err != nil {
			return fmt.Errorf("registering collector %q: %w", r.Name, err)
		}
	}
	for _, g := range m.Groups {
		if _, err := admin.CreateStrategyGroup(ctx, g.Name, g.FarmStrategies, g.HarvestStrategy, g.Collector); err != nil {
			return fmt.Errorf("creating strategy group %q: %w", g.Name, err)
		}
	}
	return nil
}
