package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/algomatic/strategy-manager/pkg/types"
)

// TestRegistryUniqueness checks that for any name, a second registration in
// the same namespace is rejected no matter which reference is supplied.
func TestRegistryUniqueness(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9 \-]{0,23}`).Draw(rt, "name")
		first := types.Address(rapid.StringMatching(`0x[0-9a-f]{8}`).Draw(rt, "first"))
		second := types.Address(rapid.StringMatching(`0x[0-9a-f]{8}`).Draw(rt, "second"))

		r := NewRegistry[types.Strategy](FarmStrategies)
		if err := r.Register(name, &mockStrategy{addr: first, isStrat: true}); err != nil {
			rt.Fatalf("first registration failed: %v", err)
		}
		err := r.Register(name, &mockStrategy{addr: second, isStrat: true})
		if KindOf(err) != KindDuplicateName {
			rt.Fatalf("expected DuplicateName, got %v", err)
		}
		got, ok := r.Lookup(name)
		if !ok || got.Address() != first {
			rt.Fatalf("stored reference changed: %v", got)
		}
	})
}

// TestRegistryCapabilityGate checks that a reference whose probe answers
// false never creates an entry.
func TestRegistryCapabilityGate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,12}`), 1, 20, rapid.ID[string]).Draw(rt, "names")
		valid := rapid.SliceOfN(rapid.Bool(), len(names), len(names)).Draw(rt, "valid")

		r := NewRegistry[types.Collector](Collectors)
		want := 0
		for i, name := range names {
			err := r.Register(name, &mockCollector{addr: "0xc", isCollector: valid[i], vault: vaultAddr})
			if valid[i] {
				want++
				if err != nil {
					rt.Fatalf("valid registration of %q failed: %v", name, err)
				}
				continue
			}
			if KindOf(err) != KindInvalidCapability {
				rt.Fatalf("expected InvalidCapability for %q, got %v", name, err)
			}
			if _, ok := r.Lookup(name); ok {
				rt.Fatalf("rejected name %q was stored", name)
			}
		}
		if r.Len() != want {
			rt.Fatalf("registry has %d entries, want %d", r.Len(), want)
		}
	})
}

func TestRegistryRejectsWrongType(t *testing.T) {
	// Claims the strategy capability but cannot be executed.
	r := NewRegistry[types.Strategy](FarmStrategies)

	err := r.Register("x", struct {
		types.Addressable
		types.StrategyProbe
	}{&mockHarvest{addr: "0x1"}, &mockStrategy{isStrat: true}})
	require.ErrorIs(t, err, ErrInvalidCapability)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry[types.HarvestStrategy](HarvestStrategies)
	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(n, &mockHarvest{addr: "0x1", isHarvest: true}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
	assert.Equal(t, HarvestStrategies, r.Namespace())
}

func TestProbe(t *testing.T) {
	s := &mockStrategy{isStrat: true}
	h := &mockHarvest{isHarvest: true}
	c := &mockCollector{isCollector: true}

	assert.True(t, Probe(s, types.CapabilityStrategy))
	assert.False(t, Probe(s, types.CapabilityCollector))
	assert.True(t, Probe(h, types.CapabilityHarvestStrategy))
	assert.False(t, Probe(h, types.CapabilityStrategy))
	assert.True(t, Probe(c, types.CapabilityCollector))
	assert.False(t, Probe(c, types.Capability("other")))
	assert.False(t, Probe(nil, types.CapabilityStrategy))
}
