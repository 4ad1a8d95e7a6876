// Package manager implements the strategy manager: three name registries
// (farm strategies, harvest strategies, collectors), the strategy group
// table built on them, and the dispatcher that executes groups.
//
// A Manager is plain owned state. It takes no locks; callers serialize
// operations (see internal/service).
package manager

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// Manager is the administrative surface of the strategy manager.
type Manager struct {
	farms      *Registry[types.Strategy]
	harvests   *Registry[types.HarvestStrategy]
	collectors *Registry[types.Collector]
	groups     *GroupRegistry
	dispatcher *Dispatcher
	log        *events.Log
	logger     *slog.Logger
}

// New creates an empty manager.
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	farms := NewRegistry[types.Strategy](FarmStrategies)
	harvests := NewRegistry[types.HarvestStrategy](HarvestStrategies)
	collectors := NewRegistry[types.Collector](Collectors)
	groups := NewGroupRegistry(farms, harvests, collectors)
	log := &events.Log{}
	return &Manager{
		farms:      farms,
		harvests:   harvests,
		collectors: collectors,
		groups:     groups,
		dispatcher: NewDispatcher(groups, log, logger),
		log:        log,
		logger:     logger,
	}
}

// RegisterFarmStrategy registers a farm strategy under name.
func (m *Manager) RegisterFarmStrategy(name string, ref any) error {
	if err := m.farms.Register(name, ref); err != nil {
		return err
	}
	m.logger.Info("Registered farm strategy", "name", name, "address", addressOf(ref))
	return nil
}

// RegisterHarvestStrategy registers a harvest strategy under name.
func (m *Manager) RegisterHarvestStrategy(name string, ref any) error {
	if err := m.harvests.Register(name, ref); err != nil {
		return err
	}
	m.logger.Info("Registered harvest strategy", "name", name, "address", addressOf(ref))
	return nil
}

// RegisterCollector registers a collector under name.
func (m *Manager) RegisterCollector(name string, ref any) error {
	if err := m.collectors.Register(name, ref); err != nil {
		return err
	}
	m.logger.Info("Registered collector", "name", name, "address", addressOf(ref))
	return nil
}

// CreateStrategyGroup assembles a new group from registered names.
func (m *Manager) CreateStrategyGroup(groupName string, farmNames []string, harvestName, collectorName string) (StrategyGroup, error) {
	g, err := m.groups.CreateGroup(groupName, farmNames, harvestName, collectorName)
	if err != nil {
		return StrategyGroup{}, err
	}
	m.logger.Info("Created strategy group",
		"group", groupName,
		"farm_strategies", len(g.FarmStrategies),
		"harvest_strategy", harvestName,
		"collector", collectorName,
		"vault", g.Vault,
	)
	return g, nil
}

// Execute runs a group. See Dispatcher.Execute.
func (m *Manager) Execute(ctx context.Context, caller types.Address, groupName string, asset types.Token, amount *big.Int) (events.ExecuteStrategy, error) {
	ev, err := m.dispatcher.Execute(ctx, caller, groupName, asset, amount)
	if err != nil {
		return events.ExecuteStrategy{}, err
	}
	m.logger.Info("Executed strategy group",
		"group", ev.GroupName,
		"amount", ev.Amount.String(),
		"vault", ev.Vault,
	)
	return ev, nil
}

// FarmStrategy returns the farm strategy registered under name.
func (m *Manager) FarmStrategy(name string) (types.Strategy, bool) {
	return m.farms.Lookup(name)
}

// HarvestStrategy returns the harvest strategy registered under name.
func (m *Manager) HarvestStrategy(name string) (types.HarvestStrategy, bool) {
	return m.harvests.Lookup(name)
}

// Collector returns the collector registered under name.
func (m *Manager) Collector(name string) (types.Collector, bool) {
	return m.collectors.Lookup(name)
}

// StrategiesGroup returns the group stored under groupName. Check Exists.
func (m *Manager) StrategiesGroup(groupName string) StrategyGroup {
	return m.groups.Group(groupName)
}

// FarmStrategyNames lists registered farm strategy names.
func (m *Manager) FarmStrategyNames() []string { return m.farms.Names() }

// HarvestStrategyNames lists registered harvest strategy names.
func (m *Manager) HarvestStrategyNames() []string { return m.harvests.Names() }

// CollectorNames lists registered collector names.
func (m *Manager) CollectorNames() []string { return m.collectors.Names() }

// GroupNames lists created strategy groups.
func (m *Manager) GroupNames() []string { return m.groups.Names() }

// Events returns the manager's event log.
func (m *Manager) Events() *events.Log { return m.log }

func addressOf(ref any) types.Address {
	if a, ok := ref.(types.Addressable); ok {
		return a.Address()
	}
	return ""
}
