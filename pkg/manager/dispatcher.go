package manager

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// Dispatcher executes strategy groups: it pulls the caller's funds into the
// group's vault, runs every farm strategy in order and emits ExecuteStrategy.
type Dispatcher struct {
	groups *GroupRegistry
	log    *events.Log
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over a group registry. Successful
// executions are appended to log.
func NewDispatcher(groups *GroupRegistry, log *events.Log, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{groups: groups, log: log, logger: logger}
}

// Execute runs the named group against amount of asset pulled from caller.
//
// An unknown group, an invalid amount or a failed transfer is rejected
// before any strategy runs. A strategy error is returned unchanged and
// aborts the remaining strategies. The event is emitted only after every
// strategy has succeeded.
//
// A failed execution leaves no effect behind on collaborators that
// implement types.Revertible: the asset and every farm strategy are
// checkpointed before they are touched and reverted, newest first, when a
// later step fails.
//
// Nothing here prevents the same group from being executed repeatedly;
// each call pulls funds and runs every strategy again.
func (d *Dispatcher) Execute(
	ctx context.Context,
	caller types.Address,
	groupName string,
	asset types.Token,
	amount *big.Int,
) (events.ExecuteStrategy, error) {
	group := d.groups.Group(groupName)
	if !group.Exists {
		return events.ExecuteStrategy{}, rejected(KindUnknownStrategyGroup, "The strategy group does not exist", groupName)
	}
	if amount == nil || amount.Sign() < 0 {
		return events.ExecuteStrategy{}, rejected(KindInvalidAmount, "The amount must be a non-negative integer", groupName)
	}
	if asset == nil {
		return events.ExecuteStrategy{}, &Error{Kind: KindTransferFailed, Reason: "There is no asset to transfer", Name: groupName}
	}

	// Collaborators must not see the caller's big.Int.
	amount = new(big.Int).Set(amount)

	var undo journal
	undo.checkpoint(asset)

	ok, err := asset.TransferFrom(ctx, caller, group.Vault, amount)
	if err != nil || !ok {
		undo.revert()
		return events.ExecuteStrategy{}, &Error{
			Kind:   KindTransferFailed,
			Reason: "Transfer of assets to the vault failed",
			Name:   groupName,
			Err:    err,
		}
	}
	d.logger.Debug("Transferred funds to vault",
		"group", groupName,
		"asset", asset.Address(),
		"amount", amount.String(),
		"vault", group.Vault,
	)

	for i, s := range group.FarmStrategies {
		undo.checkpoint(s)
		result, err := s.Execute(ctx, groupName, new(big.Int).Set(amount), group.Vault)
		if err != nil {
			undo.revert()
			d.logger.Warn("Reverted failed execution",
				"group", groupName,
				"index", i,
				"strategy", s.Address(),
				"error", err,
			)
			return events.ExecuteStrategy{}, err
		}
		d.logger.Debug("Executed farm strategy",
			"group", groupName,
			"index", i,
			"strategy", s.Address(),
			"result", resultString(result),
		)
	}

	ev := events.ExecuteStrategy{
		GroupName: groupName,
		Amount:    amount,
		Vault:     group.Vault,
	}
	if d.log != nil {
		d.log.Emit(ev)
	}
	return ev, nil
}

// journal collects checkpoints of the collaborators an execution touches.
type journal struct {
	reverts []func()
}

func (j *journal) checkpoint(c any) {
	if r, ok := c.(types.Revertible); ok {
		j.reverts = append(j.reverts, r.Checkpoint())
	}
}

func (j *journal) revert() {
	for i := len(j.reverts) - 1; i >= 0; i-- {
		j.reverts[i]()
	}
	j.reverts = nil
}

func resultString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}
