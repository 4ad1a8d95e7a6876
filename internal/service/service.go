// Package service wraps the strategy manager for the network surfaces.
//
// The manager itself takes no locks. Service serializes every operation
// behind one mutex, resolves addresses through the directory, traces the
// state-changing calls and forwards what they produce to the configured
// sinks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/algomatic/strategy-manager/internal/directory"
	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/manager"
	"github.com/algomatic/strategy-manager/pkg/types"
)

const tracerName = "github.com/algomatic/strategy-manager/internal/service"

// ErrUnknownAsset is returned when an execution names an address that is
// not a deployed token.
var ErrUnknownAsset = errors.New("unknown asset")

// ExecutionSink receives every successful group execution.
type ExecutionSink interface {
	RecordExecution(ctx context.Context, ev events.ExecuteStrategy) error
}

// GroupSink receives every newly created strategy group.
type GroupSink interface {
	SaveGroup(ctx context.Context, g manager.StrategyGroup) error
}

// Option configures a Service.
type Option func(*Service)

// WithExecutionSink adds a sink for execution events.
func WithExecutionSink(s ExecutionSink) Option {
	return func(svc *Service) { svc.executionSinks = append(svc.executionSinks, s) }
}

// WithGroupSink adds a sink for created groups.
func WithGroupSink(s GroupSink) Option {
	return func(svc *Service) { svc.groupSinks = append(svc.groupSinks, s) }
}

// WithTracer overrides the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(svc *Service) { svc.tracer = t }
}

// Service is the serialized, address-level facade over a manager.
type Service struct {
	mu  sync.Mutex
	mgr *manager.Manager
	dir *directory.Directory

	executionSinks []ExecutionSink
	groupSinks     []GroupSink
	tracer         trace.Tracer
	logger         *slog.Logger
}

// New creates a service over mgr, resolving addresses through dir.
func New(mgr *manager.Manager, dir *directory.Directory, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		mgr:    mgr,
		dir:    dir,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Directory returns the service's address book.
func (s *Service) Directory() *directory.Directory { return s.dir }

// resolve returns the collaborator at addr, or an untyped nil so that the
// registry's probe rejects it.
func (s *Service) resolve(addr types.Address) any {
	if c, ok := s.dir.Resolve(addr); ok {
		return c
	}
	return nil
}

// RegisterFarmStrategy registers the collaborator at addr as a farm strategy.
func (s *Service) RegisterFarmStrategy(_ context.Context, name string, addr types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejectLog("register farm strategy", name, s.mgr.RegisterFarmStrategy(name, s.resolve(addr)))
}

// RegisterHarvestStrategy registers the collaborator at addr as a harvest strategy.
func (s *Service) RegisterHarvestStrategy(_ context.Context, name string, addr types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejectLog("register harvest strategy", name, s.mgr.RegisterHarvestStrategy(name, s.resolve(addr)))
}

// RegisterCollector registers the collaborator at addr as a collector.
func (s *Service) RegisterCollector(_ context.Context, name string, addr types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejectLog("register collector", name, s.mgr.RegisterCollector(name, s.resolve(addr)))
}

// CreateStrategyGroup creates a group and forwards it to the group sinks.
func (s *Service) CreateStrategyGroup(ctx context.Context, groupName string, farmNames []string, harvestName, collectorName string) (manager.StrategyGroup, error) {
	ctx, span := s.tracer.Start(ctx, "strategy_manager.create_group",
		trace.WithAttributes(
			attribute.String("group", groupName),
			attribute.StringSlice("farm_strategies", farmNames),
			attribute.String("harvest_strategy", harvestName),
			attribute.String("collector", collectorName),
		),
	)
	defer span.End()

	s.mu.Lock()
	g, err := s.mgr.CreateStrategyGroup(groupName, farmNames, harvestName, collectorName)
	s.mu.Unlock()
	if err != nil {
		recordError(span, err)
		return manager.StrategyGroup{}, s.rejectLog("create strategy group", groupName, err)
	}

	for _, sink := range s.groupSinks {
		if err := sink.SaveGroup(ctx, g); err != nil {
			s.logger.Error("Group sink failed", "group", groupName, "error", err)
		}
	}
	return g, nil
}

// Execute runs a group with amount of the token at asset, pulled from caller.
// The group is resolved before the asset. A failed execution restores every
// deployed collaborator to its state before the call. The resulting event is
// forwarded to every execution sink; a sink failure is logged and does not
// change the result.
func (s *Service) Execute(ctx context.Context, caller types.Address, groupName string, asset types.Address, amount *big.Int) (events.ExecuteStrategy, error) {
	ctx, span := s.tracer.Start(ctx, "strategy_manager.execute",
		trace.WithAttributes(
			attribute.String("group", groupName),
			attribute.String("asset", asset.String()),
			attribute.String("caller", caller.String()),
		),
	)
	defer span.End()

	ev, err := s.execute(ctx, caller, groupName, asset, amount)
	if err != nil {
		recordError(span, err)
		return events.ExecuteStrategy{}, s.rejectLog("execute", groupName, err)
	}
	span.SetAttributes(
		attribute.String("amount", ev.Amount.String()),
		attribute.String("vault", ev.Vault.String()),
	)

	for _, sink := range s.executionSinks {
		if err := sink.RecordExecution(ctx, ev); err != nil {
			s.logger.Error("Execution sink failed", "group", groupName, "error", err)
		}
	}
	return ev, nil
}

func (s *Service) execute(ctx context.Context, caller types.Address, groupName string, asset types.Address, amount *big.Int) (events.ExecuteStrategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mgr.StrategiesGroup(groupName).Exists {
		// Let the manager report the missing group.
		return s.mgr.Execute(ctx, caller, groupName, nil, amount)
	}
	token, ok := s.dir.Asset(asset)
	if !ok {
		return events.ExecuteStrategy{}, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	revert := s.dir.Checkpoint()
	ev, err := s.mgr.Execute(ctx, caller, groupName, token, amount)
	if err != nil {
		revert()
		return events.ExecuteStrategy{}, err
	}
	return ev, nil
}

// FarmStrategy returns the address registered under name.
func (s *Service) FarmStrategy(name string) (types.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.mgr.FarmStrategy(name)
	if !ok {
		return "", false
	}
	return ref.Address(), true
}

// HarvestStrategy returns the address registered under name.
func (s *Service) HarvestStrategy(name string) (types.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.mgr.HarvestStrategy(name)
	if !ok {
		return "", false
	}
	return ref.Address(), true
}

// Collector returns the address registered under name.
func (s *Service) Collector(name string) (types.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.mgr.Collector(name)
	if !ok {
		return "", false
	}
	return ref.Address(), true
}

// StrategiesGroup returns the group stored under groupName. Check Exists.
func (s *Service) StrategiesGroup(groupName string) manager.StrategyGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.StrategiesGroup(groupName)
}

// Names lists the registered names of each namespace and the groups.
func (s *Service) Names() (farms, harvests, collectors, groups []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.FarmStrategyNames(), s.mgr.HarvestStrategyNames(), s.mgr.CollectorNames(), s.mgr.GroupNames()
}

// Events returns every event the manager has emitted.
func (s *Service) Events() []events.Record {
	return s.mgr.Events().Records()
}

func (s *Service) rejectLog(op, name string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Warn("Rejected operation",
		"op", op,
		"name", name,
		"kind", manager.KindOf(err),
		"error", err,
	)
	return err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
