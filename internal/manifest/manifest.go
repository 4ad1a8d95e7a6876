// Package manifest loads a TOML bootstrap file describing deployed
// collaborators, registrations and strategy groups.
//
// Example:
//
//	[[token]]
//	address = "0xusdc"
//	symbol = "USDC"
//	[token.balances]
//	"0xalice" = "1000"
//
//	[[collector]]
//	address = "0xcollector"
//	vault = "0xvault"
//
//	[[register.collector]]
//	name = "GET-ALL-FEE"
//	address = "0xcollector"
//
//	[[group]]
//	name = "First Strategy"
//	farm_strategies = ["Curve liquid"]
//	harvest_strategy = "GET-ALL-FEE"
//	collector = "GET-ALL-FEE"
package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the decoded bootstrap file.
type Manifest struct {
	Tokens            []TokenSpec     `toml:"token"`
	Routers           []RouterSpec    `toml:"router"`
	SwapStrategies    []SwapSpec      `toml:"swap_strategy"`
	HarvestStrategies []ContractSpec  `toml:"harvest_strategy"`
	Collectors        []CollectorSpec `toml:"collector"`
	Register          RegisterSpec    `toml:"register"`
	Groups            []GroupSpec     `toml:"group"`
}

// TokenSpec deploys an in-memory token with initial balances.
type TokenSpec struct {
	Address  string            `toml:"address"`
	Symbol   string            `toml:"symbol"`
	Balances map[string]string `toml:"balances"`
}

// RouterSpec deploys a fixed-rate swap router.
type RouterSpec struct {
	Address string `toml:"address"`
	RateNum int64  `toml:"rate_num"`
	RateDen int64  `toml:"rate_den"`
}

// SwapSpec deploys a swapping strategy and configures its groups.
type SwapSpec struct {
	Address string           `toml:"address"`
	Router  string           `toml:"router"`
	Configs []SwapConfigSpec `toml:"config"`
}

// SwapConfigSpec is one Configure call on a swapping strategy.
type SwapConfigSpec struct {
	Group    string `toml:"group"`
	TokenIn  string `toml:"token_in"`
	TokenOut string `toml:"token_out"`
}

// ContractSpec deploys a collaborator that only needs an address.
type ContractSpec struct {
	Address string `toml:"address"`
}

// CollectorSpec deploys a fee collector.
type CollectorSpec struct {
	Address string `toml:"address"`
	Vault   string `toml:"vault"`
}

// RegisterSpec lists registrations per namespace, applied in order.
type RegisterSpec struct {
	Farm      []NameSpec `toml:"farm"`
	Harvest   []NameSpec `toml:"harvest"`
	Collector []NameSpec `toml:"collector"`
}

// NameSpec registers address under name.
type NameSpec struct {
	Name    string `toml:"name"`
	Address string `toml:"address"`
}

// GroupSpec creates a strategy group.
type GroupSpec struct {
	Name            string   `toml:"name"`
	FarmStrategies  []string `toml:"farm_strategies"`
	HarvestStrategy string   `toml:"harvest_strategy"`
	Collector       string   `toml:"collector"`
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Parse decodes a manifest from TOML text.
func Parse(data string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return &m, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}
