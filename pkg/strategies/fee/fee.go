// Package fee provides the harvest strategy and fee collector used to
// bootstrap strategy groups.
package fee

import "github.com/algomatic/strategy-manager/pkg/types"

// HarvestAll is a harvest strategy that claims every fee a group accrues.
type HarvestAll struct {
	addr types.Address
}

// NewHarvestAll creates a harvest strategy deployed at addr.
func NewHarvestAll(addr types.Address) *HarvestAll {
	return &HarvestAll{addr: addr}
}

func (h *HarvestAll) Address() types.Address  { return h.addr }
func (h *HarvestAll) IsHarvestStrategy() bool { return true }

// Collector receives fees into a fixed vault.
type Collector struct {
	addr  types.Address
	vault types.Address
}

// NewCollector creates a collector deployed at addr whose funds land in vault.
func NewCollector(addr, vault types.Address) *Collector {
	return &Collector{addr: addr, vault: vault}
}

func (c *Collector) Address() types.Address { return c.addr }
func (c *Collector) IsCollector() bool      { return true }
func (c *Collector) Vault() types.Address   { return c.vault }

var (
	_ types.HarvestStrategy = (*HarvestAll)(nil)
	_ types.Collector       = (*Collector)(nil)
)
