// Package types defines the collaborator contracts shared by the strategy
// manager and the strategies it drives.
//
// The manager never looks inside a collaborator. It only relies on:
//   - Address = stable identifier of a deployed collaborator
//   - Capability probes (IsStrategy, IsHarvestStrategy, IsCollector)
//   - Strategy.Execute = the farm strategy entry point
//   - Token.TransferFrom = the pull-transfer primitive
package types

import (
	"context"
	"math/big"
	"strings"
)

// Address identifies a collaborator (token, strategy, collector, vault, account).
type Address string

// String returns the address as a plain string.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

// Capability names a role a collaborator can claim.
type Capability string

const (
	CapabilityStrategy        Capability = "strategy"
	CapabilityHarvestStrategy Capability = "harvest_strategy"
	CapabilityCollector       Capability = "collector"
)

// Addressable is implemented by every collaborator the manager stores.
type Addressable interface {
	Address() Address
}

// StrategyProbe is the self-identification method of a farm strategy.
type StrategyProbe interface {
	IsStrategy() bool
}

// HarvestStrategyProbe is the self-identification method of a harvest strategy.
type HarvestStrategyProbe interface {
	IsHarvestStrategy() bool
}

// CollectorProbe is the self-identification method of a fee collector.
type CollectorProbe interface {
	IsCollector() bool
}

// Strategy is a farm strategy: it puts transferred funds to work.
// Execute is invoked once per farm strategy per group execution; the
// returned amount is informational.
type Strategy interface {
	Addressable
	StrategyProbe
	Execute(ctx context.Context, groupName string, amount *big.Int, vault Address) (*big.Int, error)
}

// HarvestStrategy realizes yield and fees for a group. It is referenced by
// groups but not invoked during execution.
type HarvestStrategy interface {
	Addressable
	HarvestStrategyProbe
}

// Collector receives fees. Its vault is where a group's funds land.
type Collector interface {
	Addressable
	CollectorProbe
	Vault() Address
}

// Token is a fungible asset.
type Token interface {
	Addressable
	// TransferFrom pulls amount from one account to another. Implementations
	// report failure either by returning false or by returning an error.
	TransferFrom(ctx context.Context, from, to Address, amount *big.Int) (bool, error)
	// Approve lets spender pull up to amount from the caller's account.
	Approve(ctx context.Context, owner, spender Address, amount *big.Int) (bool, error)
}

// ParseAmount parses a base-10 integer amount. It returns false if s is
// not a valid non-negative integer.
func ParseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// Revertible is implemented by collaborators that can undo their own state
// changes. Checkpoint captures the current state; calling the returned
// function restores it.
type Revertible interface {
	Checkpoint() (revert func())
}
