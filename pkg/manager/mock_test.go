package manager

import (
	"context"
	"math/big"

	"github.com/algomatic/strategy-manager/pkg/types"
)

// callLog records the order in which mock strategies ran.
type callLog struct {
	calls []string
}

type mockStrategy struct {
	addr     types.Address
	isStrat  bool
	result   *big.Int
	err      error
	log      *callLog
	received []*big.Int
	vaults   []types.Address
}

func (m *mockStrategy) Address() types.Address { return m.addr }
func (m *mockStrategy) IsStrategy() bool       { return m.isStrat }

func (m *mockStrategy) Execute(_ context.Context, groupName string, amount *big.Int, vault types.Address) (*big.Int, error) {
	if m.log != nil {
		m.log.calls = append(m.log.calls, string(m.addr))
	}
	m.received = append(m.received, amount)
	m.vaults = append(m.vaults, vault)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// revertibleStrategy counts how often its checkpoint was rolled back.
type revertibleStrategy struct {
	mockStrategy
	checkpoints int
	reverts     int
}

func (r *revertibleStrategy) Checkpoint() func() {
	r.checkpoints++
	return func() { r.reverts++ }
}

type mockHarvest struct {
	addr      types.Address
	isHarvest bool
}

func (m *mockHarvest) Address() types.Address  { return m.addr }
func (m *mockHarvest) IsHarvestStrategy() bool { return m.isHarvest }

type mockCollector struct {
	addr        types.Address
	isCollector bool
	vault       types.Address
}

func (m *mockCollector) Address() types.Address { return m.addr }
func (m *mockCollector) IsCollector() bool      { return m.isCollector }
func (m *mockCollector) Vault() types.Address   { return m.vault }

type transferCall struct {
	from, to types.Address
	amount   *big.Int
}

type mockToken struct {
	addr      types.Address
	ok        bool
	err       error
	transfers []transferCall
}

func (m *mockToken) Address() types.Address { return m.addr }

func (m *mockToken) TransferFrom(_ context.Context, from, to types.Address, amount *big.Int) (bool, error) {
	m.transfers = append(m.transfers, transferCall{from: from, to: to, amount: amount})
	return m.ok, m.err
}

func (m *mockToken) Approve(context.Context, types.Address, types.Address, *big.Int) (bool, error) {
	return true, nil
}

// notAStrategy only has an address; it exposes no probe.
type notAStrategy struct{}

func (notAStrategy) Address() types.Address { return "0xdead" }

const (
	vaultAddr  types.Address = "0xvault"
	callerAddr types.Address = "0xcaller"
)

// fixture holds a manager with scenario-1 registrations: farm "Curve liquid",
// harvest "GET-ALL-FEE" and collector "GET-ALL-FEE".
type fixture struct {
	m         *Manager
	farm      *mockStrategy
	harvest   *mockHarvest
	collector *mockCollector
	token     *mockToken
	calls     *callLog
}

func newFixture() *fixture {
	calls := &callLog{}
	f := &fixture{
		m:         New(nil),
		farm:      &mockStrategy{addr: "0xfarm", isStrat: true, result: big.NewInt(9000), log: calls},
		harvest:   &mockHarvest{addr: "0xharvest", isHarvest: true},
		collector: &mockCollector{addr: "0xcollector", isCollector: true, vault: vaultAddr},
		token:     &mockToken{addr: "0xtoken", ok: true},
		calls:     calls,
	}
	return f
}

func (f *fixture) registerAll() error {
	if err := f.m.RegisterFarmStrategy("Curve liquid", f.farm); err != nil {
		return err
	}
	if err := f.m.RegisterHarvestStrategy("GET-ALL-FEE", f.harvest); err != nil {
		return err
	}
	return f.m.RegisterCollector("GET-ALL-FEE", f.collector)
}
