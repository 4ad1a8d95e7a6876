package manager

import (
	"sort"
	"strings"

	"github.com/algomatic/strategy-manager/pkg/types"
)

// StrategyGroup bundles farm strategies with a harvest strategy, a collector
// and the vault funds land in. A group is immutable once created.
//
// Exists distinguishes a stored group from the zero record returned for an
// unknown name.
type StrategyGroup struct {
	Name            string
	FarmStrategies  []types.Strategy
	HarvestStrategy types.HarvestStrategy
	Collector       types.Collector
	Vault           types.Address
	Exists          bool
}

// FarmStrategyAddresses returns the addresses of the group's farm
// strategies in execution order.
func (g StrategyGroup) FarmStrategyAddresses() []types.Address {
	out := make([]types.Address, len(g.FarmStrategies))
	for i, s := range g.FarmStrategies {
		out[i] = s.Address()
	}
	return out
}

func (g StrategyGroup) clone() StrategyGroup {
	farms := make([]types.Strategy, len(g.FarmStrategies))
	copy(farms, g.FarmStrategies)
	g.FarmStrategies = farms
	return g
}

// GroupRegistry creates and stores strategy groups. It resolves member names
// through the three name registries it is built on.
type GroupRegistry struct {
	farms      *Registry[types.Strategy]
	harvests   *Registry[types.HarvestStrategy]
	collectors *Registry[types.Collector]
	groups     map[string]StrategyGroup
}

// NewGroupRegistry creates an empty group registry over the given name registries.
func NewGroupRegistry(
	farms *Registry[types.Strategy],
	harvests *Registry[types.HarvestStrategy],
	collectors *Registry[types.Collector],
) *GroupRegistry {
	return &GroupRegistry{
		farms:      farms,
		harvests:   harvests,
		collectors: collectors,
		groups:     make(map[string]StrategyGroup),
	}
}

// CreateGroup assembles and stores a new group. Preconditions are checked
// in order and the first failure is returned:
//
//  1. the group name is free
//  2. every farm strategy name is registered (the list must not be empty)
//  3. the harvest strategy name is registered
//  4. the collector name is registered and reports a vault
//
// Nothing is stored unless all checks pass. The vault is always the one
// reported by the collector.
func (r *GroupRegistry) CreateGroup(groupName string, farmNames []string, harvestName, collectorName string) (StrategyGroup, error) {
	if strings.TrimSpace(groupName) == "" {
		return StrategyGroup{}, rejected(KindInvalidName, "The strategy group name is empty", "")
	}
	if r.groups[groupName].Exists {
		return StrategyGroup{}, rejected(KindDuplicateGroupName, "Already exist a strategy with that name", groupName)
	}

	if len(farmNames) == 0 {
		return StrategyGroup{}, rejected(KindUnknownFarmStrategy, "A strategy group needs at least one farm strategy", groupName)
	}
	farms := make([]types.Strategy, len(farmNames))
	for i, name := range farmNames {
		s, ok := r.farms.Lookup(name)
		if !ok {
			return StrategyGroup{}, rejected(KindUnknownFarmStrategy, "There is a farm strategy that is not registered", name)
		}
		farms[i] = s
	}

	harvest, ok := r.harvests.Lookup(harvestName)
	if !ok {
		return StrategyGroup{}, rejected(KindUnknownHarvestStrategy, "The harvest strategy is not registered", harvestName)
	}

	collector, ok := r.collectors.Lookup(collectorName)
	if !ok {
		return StrategyGroup{}, rejected(KindUnknownCollector, "The collector is not registered", collectorName)
	}
	vault := collector.Vault()
	if vault.IsZero() {
		return StrategyGroup{}, rejected(KindCollectorWithoutVault, "The collector has no vault", collectorName)
	}

	g := StrategyGroup{
		Name:            groupName,
		FarmStrategies:  farms,
		HarvestStrategy: harvest,
		Collector:       collector,
		Vault:           vault,
		Exists:          true,
	}
	r.groups[groupName] = g
	return g.clone(), nil
}

// Group returns the stored group, or a zero record with Exists == false.
func (r *GroupRegistry) Group(groupName string) StrategyGroup {
	g, ok := r.groups[groupName]
	if !ok {
		return StrategyGroup{}
	}
	return g.clone()
}

// Names returns every group name, sorted.
func (r *GroupRegistry) Names() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
