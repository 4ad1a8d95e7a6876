package manager

import (
	"sort"
	"strings"

	"github.com/algomatic/strategy-manager/pkg/types"
)

// Namespace describes one independent name space and the messages it
// rejects registrations with.
type Namespace struct {
	Label           string
	Capability      types.Capability
	InvalidReason   string
	DuplicateReason string
}

// The three registration namespaces.
var (
	FarmStrategies = Namespace{
		Label:           "farm strategy",
		Capability:      types.CapabilityStrategy,
		InvalidReason:   "The address is not a IStrategy",
		DuplicateReason: "Already exist a farm strategy with that name",
	}
	HarvestStrategies = Namespace{
		Label:           "harvest strategy",
		Capability:      types.CapabilityHarvestStrategy,
		InvalidReason:   "The address is not a IHarvestStrategy",
		DuplicateReason: "Already exist a Harvest strategy with that name",
	}
	Collectors = Namespace{
		Label:           "collector",
		Capability:      types.CapabilityCollector,
		InvalidReason:   "The address is not a ICollector",
		DuplicateReason: "Already exist a collector with that name",
	}
)

type entry[T any] struct {
	ref       T
	validated bool
}

// Registry maps unique names to capability-checked references.
// Entries are written once and never removed.
type Registry[T types.Addressable] struct {
	ns      Namespace
	entries map[string]entry[T]
}

// NewRegistry creates an empty registry for the given namespace.
func NewRegistry[T types.Addressable](ns Namespace) *Registry[T] {
	return &Registry[T]{
		ns:      ns,
		entries: make(map[string]entry[T]),
	}
}

// Namespace returns the namespace this registry serves.
func (r *Registry[T]) Namespace() Namespace {
	return r.ns
}

// Register stores ref under name. The reference must pass the namespace's
// capability probe and implement T; the name must not be taken.
func (r *Registry[T]) Register(name string, ref any) error {
	if strings.TrimSpace(name) == "" {
		return rejected(KindInvalidName, "The "+r.ns.Label+" name is empty", "")
	}
	if !Probe(ref, r.ns.Capability) {
		return rejected(KindInvalidCapability, r.ns.InvalidReason, name)
	}
	typed, ok := ref.(T)
	if !ok {
		return rejected(KindInvalidCapability, r.ns.InvalidReason, name)
	}
	if e := r.entries[name]; e.validated {
		return rejected(KindDuplicateName, r.ns.DuplicateReason, name)
	}
	r.entries[name] = entry[T]{ref: typed, validated: true}
	return nil
}

// Lookup returns the reference stored under name.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	e := r.entries[name]
	return e.ref, e.validated
}

// Names returns every registered name, sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry[T]) Len() int {
	return len(r.entries)
}
