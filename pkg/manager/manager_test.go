package manager

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algomatic/strategy-manager/internal/ledger"
	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/types"
)

func TestRegisterFarmStrategyStoresReference(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.m.RegisterFarmStrategy("Curve liquid", f.farm))

	got, ok := f.m.FarmStrategy("Curve liquid")
	require.True(t, ok)
	assert.Equal(t, types.Address("0xfarm"), got.Address())
}

func TestRegisterFarmStrategyRejectsNonStrategy(t *testing.T) {
	f := newFixture()
	f.farm.isStrat = false

	err := f.m.RegisterFarmStrategy("Curve liquid", f.farm)
	require.ErrorIs(t, err, ErrInvalidCapability)
	assert.Contains(t, err.Error(), "The address is not a IStrategy")

	_, ok := f.m.FarmStrategy("Curve liquid")
	assert.False(t, ok)
}

func TestRegisterFarmStrategyRejectsReferenceWithoutProbe(t *testing.T) {
	f := newFixture()
	err := f.m.RegisterFarmStrategy("Curve liquid", notAStrategy{})
	require.ErrorIs(t, err, ErrInvalidCapability)

	err = f.m.RegisterFarmStrategy("Curve liquid", nil)
	require.ErrorIs(t, err, ErrInvalidCapability)
}

func TestRegisterFarmStrategyRejectsDuplicateName(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.m.RegisterFarmStrategy("Curve liquid", f.farm))

	other := &mockStrategy{addr: "0xother", isStrat: true}
	err := f.m.RegisterFarmStrategy("Curve liquid", other)
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), "Already exist a farm strategy with that name")

	got, _ := f.m.FarmStrategy("Curve liquid")
	assert.Equal(t, types.Address("0xfarm"), got.Address(), "first registration must be kept")
}

func TestRegisterHarvestStrategy(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.m.RegisterHarvestStrategy("GET-ALL-FEE", f.harvest))

	got, ok := f.m.HarvestStrategy("GET-ALL-FEE")
	require.True(t, ok)
	assert.Equal(t, types.Address("0xharvest"), got.Address())

	err := f.m.RegisterHarvestStrategy("GET-ALL-FEE", f.harvest)
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), "Already exist a Harvest strategy with that name")
}

func TestRegisterHarvestStrategyRejectsNonHarvest(t *testing.T) {
	f := newFixture()
	f.harvest.isHarvest = false

	err := f.m.RegisterHarvestStrategy("GET-ALL-FEE", f.harvest)
	require.ErrorIs(t, err, ErrInvalidCapability)
	assert.Contains(t, err.Error(), "The address is not a IHarvestStrategy")
	assert.Empty(t, f.m.HarvestStrategyNames())
}

func TestRegisterCollector(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.m.RegisterCollector("GET-ALL-FEE", f.collector))

	got, ok := f.m.Collector("GET-ALL-FEE")
	require.True(t, ok)
	assert.Equal(t, vaultAddr, got.Vault())

	f2 := newFixture()
	f2.collector.isCollector = false
	err := f2.m.RegisterCollector("GET-ALL-FEE", f2.collector)
	require.ErrorIs(t, err, ErrInvalidCapability)
	assert.Contains(t, err.Error(), "The address is not a ICollector")
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	f := newFixture()
	require.ErrorIs(t, f.m.RegisterFarmStrategy("", f.farm), ErrInvalidName)
	require.ErrorIs(t, f.m.RegisterHarvestStrategy("  ", f.harvest), ErrInvalidName)
	require.ErrorIs(t, f.m.RegisterCollector("", f.collector), ErrInvalidName)
}

func TestNamespacesAreIndependent(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())

	// The same name lives in both the harvest and collector namespaces.
	_, ok := f.m.HarvestStrategy("GET-ALL-FEE")
	assert.True(t, ok)
	_, ok = f.m.Collector("GET-ALL-FEE")
	assert.True(t, ok)
	_, ok = f.m.FarmStrategy("GET-ALL-FEE")
	assert.False(t, ok)
}

func TestCreateStrategyGroup(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())

	_, err := f.m.CreateStrategyGroup("First Strategy", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	g := f.m.StrategiesGroup("First Strategy")
	require.True(t, g.Exists)
	assert.Equal(t, "First Strategy", g.Name)
	assert.Equal(t, []types.Address{"0xfarm"}, g.FarmStrategyAddresses())
	assert.Equal(t, types.Address("0xharvest"), g.HarvestStrategy.Address())
	assert.Equal(t, types.Address("0xcollector"), g.Collector.Address())
	assert.Equal(t, vaultAddr, g.Vault)
}

func TestStrategiesGroupNeverCreated(t *testing.T) {
	f := newFixture()
	g := f.m.StrategiesGroup("never-created")
	assert.False(t, g.Exists)
	assert.Empty(t, g.FarmStrategies)
	assert.True(t, g.Vault.IsZero())
}

func TestCreateStrategyGroupRejectsDuplicateName(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	other := &mockStrategy{addr: "0xother", isStrat: true}
	require.NoError(t, f.m.RegisterFarmStrategy("Other", other))

	_, err := f.m.CreateStrategyGroup("First Strategy", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	_, err = f.m.CreateStrategyGroup("First Strategy", []string{"Other"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.ErrorIs(t, err, ErrDuplicateGroupName)
	assert.Contains(t, err.Error(), "Already exist a strategy with that name")

	g := f.m.StrategiesGroup("First Strategy")
	assert.Equal(t, []types.Address{"0xfarm"}, g.FarmStrategyAddresses(), "first group must be unchanged")
}

func TestCreateStrategyGroupRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name      string
		group     string
		farms     []string
		harvest   string
		collector string
		want      error
	}{
		{"unknown farm", "X", []string{"unregistered-name"}, "GET-ALL-FEE", "GET-ALL-FEE", ErrUnknownFarmStrategy},
		{"second farm unknown", "X", []string{"Curve liquid", "unregistered-name"}, "GET-ALL-FEE", "GET-ALL-FEE", ErrUnknownFarmStrategy},
		{"empty farm list", "X", nil, "GET-ALL-FEE", "GET-ALL-FEE", ErrUnknownFarmStrategy},
		{"unknown harvest", "X", []string{"Curve liquid"}, "nope", "GET-ALL-FEE", ErrUnknownHarvestStrategy},
		{"unknown collector", "X", []string{"Curve liquid"}, "GET-ALL-FEE", "nope", ErrUnknownCollector},
		{"farm checked before harvest", "X", []string{"nope"}, "nope", "nope", ErrUnknownFarmStrategy},
		{"harvest checked before collector", "X", []string{"Curve liquid"}, "nope", "nope", ErrUnknownHarvestStrategy},
		{"empty group name", "", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			require.NoError(t, f.registerAll())

			_, err := f.m.CreateStrategyGroup(tt.group, tt.farms, tt.harvest, tt.collector)
			require.ErrorIs(t, err, tt.want)
			assert.False(t, f.m.StrategiesGroup(tt.group).Exists)
			assert.Empty(t, f.m.GroupNames())
		})
	}
}

func TestCreateStrategyGroupDuplicateCheckedFirst(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	_, err := f.m.CreateStrategyGroup("G", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	_, err = f.m.CreateStrategyGroup("G", []string{"nope"}, "nope", "nope")
	require.ErrorIs(t, err, ErrDuplicateGroupName)
}

func TestCreateStrategyGroupRejectsCollectorWithoutVault(t *testing.T) {
	f := newFixture()
	f.collector.vault = ""
	require.NoError(t, f.registerAll())

	_, err := f.m.CreateStrategyGroup("G", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.ErrorIs(t, err, ErrCollectorWithoutVault)
	assert.NotErrorIs(t, err, ErrUnknownCollector)
	assert.Equal(t, KindCollectorWithoutVault, KindOf(err))
	assert.False(t, f.m.StrategiesGroup("G").Exists)
}

func TestStrategiesGroupReturnsCopy(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	_, err := f.m.CreateStrategyGroup("G", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	g := f.m.StrategiesGroup("G")
	g.FarmStrategies[0] = &mockStrategy{addr: "0xevil", isStrat: true}

	assert.Equal(t, []types.Address{"0xfarm"}, f.m.StrategiesGroup("G").FarmStrategyAddresses())
}

func newExecFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	require.NoError(t, f.registerAll())
	_, err := f.m.CreateStrategyGroup("First Strategy", []string{"Curve liquid"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)
	return f
}

func TestExecuteEmitsEvent(t *testing.T) {
	f := newExecFixture(t)

	ev, err := f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, big.NewInt(200))
	require.NoError(t, err)

	assert.Equal(t, "First Strategy", ev.GroupName)
	assert.Equal(t, 0, ev.Amount.Cmp(big.NewInt(200)))
	assert.Equal(t, vaultAddr, ev.Vault)

	emitted := f.m.Events().Named(events.NameExecuteStrategy)
	require.Len(t, emitted, 1)
	assert.Equal(t, ev, emitted[0])

	require.Len(t, f.token.transfers, 1)
	assert.Equal(t, callerAddr, f.token.transfers[0].from)
	assert.Equal(t, vaultAddr, f.token.transfers[0].to)
	assert.Equal(t, 0, f.token.transfers[0].amount.Cmp(big.NewInt(200)))

	require.Len(t, f.farm.received, 1)
	assert.Equal(t, 0, f.farm.received[0].Cmp(big.NewInt(200)))
	assert.Equal(t, []types.Address{vaultAddr}, f.farm.vaults)
}

func TestExecuteUnknownGroup(t *testing.T) {
	f := newExecFixture(t)

	_, err := f.m.Execute(context.Background(), callerAddr, "missing", f.token, big.NewInt(1))
	require.ErrorIs(t, err, ErrUnknownStrategyGroup)
	assert.Empty(t, f.token.transfers)
	assert.Equal(t, 0, f.m.Events().Len())
}

func TestExecuteTransferReturnsFalse(t *testing.T) {
	f := newExecFixture(t)
	f.token.ok = false

	_, err := f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, big.NewInt(200))
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Empty(t, f.farm.received, "no strategy may run after a failed transfer")
	assert.Equal(t, 0, f.m.Events().Len())
}

func TestExecuteTransferReturnsError(t *testing.T) {
	f := newExecFixture(t)
	boom := errors.New("insufficient allowance")
	f.token.ok = true
	f.token.err = boom

	_, err := f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, big.NewInt(200))
	require.ErrorIs(t, err, ErrTransferFailed)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, f.farm.received)
	assert.Equal(t, 0, f.m.Events().Len())
}

func TestExecuteRejectsInvalidAmount(t *testing.T) {
	f := newExecFixture(t)

	_, err := f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, big.NewInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, f.token.transfers)
}

func TestExecuteRunsStrategiesInOrder(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	names := []string{"c", "a", "b"}
	strategies := make([]*mockStrategy, len(names))
	for i, n := range names {
		strategies[i] = &mockStrategy{addr: types.Address("0x" + n), isStrat: true, log: f.calls}
		require.NoError(t, f.m.RegisterFarmStrategy(n, strategies[i]))
	}
	_, err := f.m.CreateStrategyGroup("G", names, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	_, err = f.m.Execute(context.Background(), callerAddr, "G", f.token, big.NewInt(5))
	require.NoError(t, err)

	assert.Equal(t, []string{"0xc", "0xa", "0xb"}, f.calls.calls)
	for _, s := range strategies {
		assert.Len(t, s.received, 1)
	}
}

func TestExecuteStrategyFailureAborts(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	boom := errors.New("strategy exploded")
	first := &mockStrategy{addr: "0x1", isStrat: true, err: boom, log: f.calls}
	second := &mockStrategy{addr: "0x2", isStrat: true, log: f.calls}
	require.NoError(t, f.m.RegisterFarmStrategy("first", first))
	require.NoError(t, f.m.RegisterFarmStrategy("second", second))
	_, err := f.m.CreateStrategyGroup("G", []string{"first", "second"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	_, err = f.m.Execute(context.Background(), callerAddr, "G", f.token, big.NewInt(5))
	require.Equal(t, boom, err, "strategy errors propagate unchanged")
	assert.Equal(t, []string{"0x1"}, f.calls.calls)
	assert.Equal(t, 0, f.m.Events().Len())
}

func TestExecuteStrategyFailureRevertsTransfer(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	boom := errors.New("boom")
	require.NoError(t, f.m.RegisterFarmStrategy("failing", &mockStrategy{addr: "0xbad", isStrat: true, err: boom}))
	_, err := f.m.CreateStrategyGroup("G", []string{"failing"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	tok := ledger.NewToken("0xusdc", "USDC")
	tok.Mint(callerAddr, big.NewInt(100))

	_, err = f.m.Execute(context.Background(), callerAddr, "G", tok, big.NewInt(60))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "100", tok.BalanceOf(callerAddr).String())
	assert.Equal(t, "0", tok.BalanceOf(vaultAddr).String())
	assert.Equal(t, 0, f.m.Events().Len())
}

func TestExecuteStrategyFailureRevertsEarlierStrategies(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.registerAll())
	first := &revertibleStrategy{mockStrategy: mockStrategy{addr: "0x1", isStrat: true}}
	second := &mockStrategy{addr: "0x2", isStrat: true, err: errors.New("boom")}
	require.NoError(t, f.m.RegisterFarmStrategy("first", first))
	require.NoError(t, f.m.RegisterFarmStrategy("second", second))
	_, err := f.m.CreateStrategyGroup("G", []string{"first", "second"}, "GET-ALL-FEE", "GET-ALL-FEE")
	require.NoError(t, err)

	_, err = f.m.Execute(context.Background(), callerAddr, "G", f.token, big.NewInt(5))
	require.Error(t, err)
	assert.Equal(t, 1, first.checkpoints)
	assert.Equal(t, 1, first.reverts)

	second.err = nil
	_, err = f.m.Execute(context.Background(), callerAddr, "G", f.token, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, 2, first.checkpoints)
	assert.Equal(t, 1, first.reverts, "a successful execution reverts nothing")
}

func TestExecuteIsNotIdempotent(t *testing.T) {
	f := newExecFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, big.NewInt(200))
		require.NoError(t, err)
	}

	assert.Len(t, f.token.transfers, 2)
	assert.Len(t, f.farm.received, 2)
	assert.Len(t, f.m.Events().Named(events.NameExecuteStrategy), 2)
}

func TestExecuteDoesNotAliasCallerAmount(t *testing.T) {
	f := newExecFixture(t)
	amount := big.NewInt(200)

	ev, err := f.m.Execute(context.Background(), callerAddr, "First Strategy", f.token, amount)
	require.NoError(t, err)
	amount.SetInt64(1)

	assert.Equal(t, "200", ev.Amount.String())
}

func TestKindOf(t *testing.T) {
	f := newFixture()
	err := f.m.RegisterFarmStrategy("x", notAStrategy{})
	assert.Equal(t, KindInvalidCapability, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, errors.Is(err, ErrDuplicateName))
}
