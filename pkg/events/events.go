// Package events holds the observable records emitted by the strategy
// manager and its collaborators.
package events

import (
	"math/big"
	"sync"

	"github.com/algomatic/strategy-manager/pkg/types"
)

// Event names as they appear on the wire and in persisted rows.
const (
	NameExecuteStrategy                 = "ExecuteStrategy"
	NameExecutedUniswapSwappingStrategy = "ExecutedUniswapSwappingStrategy"
)

// Record is any event that can be appended to a Log.
type Record interface {
	EventName() string
}

// ExecuteStrategy is emitted exactly once per successful group execution.
type ExecuteStrategy struct {
	GroupName string
	Amount    *big.Int
	Vault     types.Address
}

// EventName implements Record.
func (ExecuteStrategy) EventName() string { return NameExecuteStrategy }

// ExecutedUniswapSwappingStrategy is emitted by the swapping strategy after a swap.
type ExecutedUniswapSwappingStrategy struct {
	GroupName string
	TokenIn   types.Address
	Amount    *big.Int
	TokenOut  types.Address
	Result    *big.Int
}

// EventName implements Record.
func (ExecutedUniswapSwappingStrategy) EventName() string {
	return NameExecutedUniswapSwappingStrategy
}

// Log is an append-only, in-order list of emitted records.
// The zero value is ready to use.
type Log struct {
	mu      sync.RWMutex
	records []Record
}

// Emit appends a record.
func (l *Log) Emit(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of every record emitted so far.
func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of emitted records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Checkpoint returns a function that drops every record emitted after the
// call.
func (l *Log) Checkpoint() func() {
	l.mu.RLock()
	n := len(l.records)
	l.mu.RUnlock()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if n < len(l.records) {
			clear(l.records[n:])
			l.records = l.records[:n]
		}
	}
}

// Named returns the records with the given event name, in emission order.
func (l *Log) Named(name string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for _, r := range l.records {
		if r.EventName() == name {
			out = append(out, r)
		}
	}
	return out
}
