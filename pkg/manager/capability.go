package manager

import "github.com/algomatic/strategy-manager/pkg/types"

// Probe asks ref whether it implements capability c. A reference that does
// not expose the matching probe method is treated as answering false.
//
// The answer is the collaborator's own self-report. It is trusted as-is and
// checked only once, when the reference is registered.
func Probe(ref any, c types.Capability) bool {
	if ref == nil {
		return false
	}
	switch c {
	case types.CapabilityStrategy:
		p, ok := ref.(types.StrategyProbe)
		return ok && p.IsStrategy()
	case types.CapabilityHarvestStrategy:
		p, ok := ref.(types.HarvestStrategyProbe)
		return ok && p.IsHarvestStrategy()
	case types.CapabilityCollector:
		p, ok := ref.(types.CollectorProbe)
		return ok && p.IsCollector()
	default:
		return false
	}
}
