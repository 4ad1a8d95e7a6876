// Package directory is the address book of deployed collaborators. The
// admin surfaces speak in addresses; the directory turns them back into the
// objects the manager probes and calls.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/algomatic/strategy-manager/internal/ledger"
	"github.com/algomatic/strategy-manager/pkg/types"
)

var (
	ErrAddressTaken = errors.New("address already deployed")
	ErrZeroAddress  = errors.New("address is empty")
)

// Directory maps addresses to deployed collaborators.
type Directory struct {
	mu        sync.RWMutex
	contracts map[types.Address]types.Addressable
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{contracts: make(map[types.Address]types.Addressable)}
}

// Deploy records c under its own address.
func (d *Directory) Deploy(c types.Addressable) error {
	addr := c.Address()
	if addr.IsZero() {
		return ErrZeroAddress
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contracts[addr]; ok {
		return fmt.Errorf("deploying %s: %w", addr, ErrAddressTaken)
	}
	d.contracts[addr] = c
	return nil
}

// Resolve returns whatever is deployed at addr.
func (d *Directory) Resolve(addr types.Address) (types.Addressable, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.contracts[addr]
	return c, ok
}

// Asset returns the fungible token deployed at addr.
func (d *Directory) Asset(addr types.Address) (types.Token, bool) {
	c, ok := d.Resolve(addr)
	if !ok {
		return nil, false
	}
	t, ok := c.(types.Token)
	return t, ok
}

// Token implements ledger.TokenSource.
func (d *Directory) Token(addr types.Address) (*ledger.Token, bool) {
	c, ok := d.Resolve(addr)
	if !ok {
		return nil, false
	}
	t, ok := c.(*ledger.Token)
	return t, ok
}

// Checkpoint captures every deployed collaborator that implements
// types.Revertible. The returned function restores all of them.
func (d *Directory) Checkpoint() func() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	reverts := make([]func(), 0, len(d.contracts))
	for _, c := range d.contracts {
		if r, ok := c.(types.Revertible); ok {
			reverts = append(reverts, r.Checkpoint())
		}
	}
	return func() {
		for _, revert := range reverts {
			revert()
		}
	}
}

// Addresses returns every deployed address, sorted.
func (d *Directory) Addresses() []types.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]types.Address, 0, len(d.contracts))
	for a := range d.contracts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
