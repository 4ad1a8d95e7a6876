// Package server exposes the strategy manager over gRPC.
//
// Messages are google.protobuf.Struct values keyed as follows:
//   - Register*: {name, address} → {}
//   - CreateStrategyGroup: {group_name, farm_strategies[], harvest_strategy, collector} → group
//   - Execute: {group_name, asset, amount, caller} → {group_name, amount, vault}
//   - FarmStrategy, HarvestStrategy, Collector: {name} → {name, address, found}
//   - StrategiesGroup: {group_name} → {group_name, farm_strategies[], harvest_strategy, collector, vault, exist}
//
// Amounts travel as decimal strings.
package server

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/algomatic/strategy-manager/internal/service"
	"github.com/algomatic/strategy-manager/pkg/manager"
	"github.com/algomatic/strategy-manager/pkg/strategies/uniswap"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// Server implements StrategyManagerServer over a service.
type Server struct {
	svc    *service.Service
	logger *slog.Logger
}

// New creates a new Server.
func New(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

var _ StrategyManagerServer = (*Server)(nil)

// mapError converts service errors to gRPC status codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch manager.KindOf(err) {
	case manager.KindInvalidName, manager.KindInvalidCapability, manager.KindInvalidAmount:
		return status.Error(codes.InvalidArgument, err.Error())
	case manager.KindDuplicateName, manager.KindDuplicateGroupName:
		return status.Error(codes.AlreadyExists, err.Error())
	case manager.KindUnknownFarmStrategy, manager.KindUnknownHarvestStrategy,
		manager.KindUnknownCollector, manager.KindUnknownStrategyGroup:
		return status.Error(codes.NotFound, err.Error())
	case manager.KindTransferFailed, manager.KindCollectorWithoutVault:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	switch {
	case errors.Is(err, service.ErrUnknownAsset):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, uniswap.ErrUnknownConfig), errors.Is(err, uniswap.ErrApproveFailed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Errorf(codes.Internal, "%v", err)
}

func field(in *structpb.Struct, key string) string {
	if v, ok := in.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func stringList(in *structpb.Struct, key string) []string {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil
	}
	values := v.GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, item := range values {
		out = append(out, item.GetStringValue())
	}
	return out
}

func listValue(items []string) *structpb.Value {
	values := make([]*structpb.Value, len(items))
	for i, s := range items {
		values[i] = structpb.NewStringValue(s)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

// RegisterFarmStrategy implements StrategyManagerServer.
func (s *Server) RegisterFarmStrategy(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.svc.RegisterFarmStrategy(ctx, field(in, "name"), types.Address(field(in, "address"))); err != nil {
		return nil, mapError(err)
	}
	return empty(), nil
}

// RegisterHarvestStrategy implements StrategyManagerServer.
func (s *Server) RegisterHarvestStrategy(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.svc.RegisterHarvestStrategy(ctx, field(in, "name"), types.Address(field(in, "address"))); err != nil {
		return nil, mapError(err)
	}
	return empty(), nil
}

// RegisterCollector implements StrategyManagerServer.
func (s *Server) RegisterCollector(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.svc.RegisterCollector(ctx, field(in, "name"), types.Address(field(in, "address"))); err != nil {
		return nil, mapError(err)
	}
	return empty(), nil
}

// CreateStrategyGroup implements StrategyManagerServer.
func (s *Server) CreateStrategyGroup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.svc.CreateStrategyGroup(ctx,
		field(in, "group_name"),
		stringList(in, "farm_strategies"),
		field(in, "harvest_strategy"),
		field(in, "collector"),
	)
	if err != nil {
		return nil, mapError(err)
	}
	return groupStruct(g), nil
}

// Execute implements StrategyManagerServer.
func (s *Server) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw := field(in, "amount")
	amount, ok := types.ParseAmount(raw)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount %q", raw)
	}
	ev, err := s.svc.Execute(ctx,
		types.Address(field(in, "caller")),
		field(in, "group_name"),
		types.Address(field(in, "asset")),
		amount,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"group_name": structpb.NewStringValue(ev.GroupName),
		"amount":     structpb.NewStringValue(ev.Amount.String()),
		"vault":      structpb.NewStringValue(ev.Vault.String()),
	}}, nil
}

func lookupStruct(name string, addr types.Address, found bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":    structpb.NewStringValue(name),
		"address": structpb.NewStringValue(addr.String()),
		"found":   structpb.NewBoolValue(found),
	}}
}

// FarmStrategy implements StrategyManagerServer.
func (s *Server) FarmStrategy(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name := field(in, "name")
	addr, ok := s.svc.FarmStrategy(name)
	return lookupStruct(name, addr, ok), nil
}

// HarvestStrategy implements StrategyManagerServer.
func (s *Server) HarvestStrategy(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name := field(in, "name")
	addr, ok := s.svc.HarvestStrategy(name)
	return lookupStruct(name, addr, ok), nil
}

// Collector implements StrategyManagerServer.
func (s *Server) Collector(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name := field(in, "name")
	addr, ok := s.svc.Collector(name)
	return lookupStruct(name, addr, ok), nil
}

// StrategiesGroup implements StrategyManagerServer. An unknown group is not
// an error; the response is the zero record with exist = false.
func (s *Server) StrategiesGroup(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return groupStruct(s.svc.StrategiesGroup(field(in, "group_name"))), nil
}

func groupStruct(g manager.StrategyGroup) *structpb.Struct {
	farms := make([]string, 0, len(g.FarmStrategies))
	for _, addr := range g.FarmStrategyAddresses() {
		farms = append(farms, addr.String())
	}
	var harvest, collector string
	if g.HarvestStrategy != nil {
		harvest = g.HarvestStrategy.Address().String()
	}
	if g.Collector != nil {
		collector = g.Collector.Address().String()
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"group_name":       structpb.NewStringValue(g.Name),
		"farm_strategies":  listValue(farms),
		"harvest_strategy": structpb.NewStringValue(harvest),
		"collector":        structpb.NewStringValue(collector),
		"vault":            structpb.NewStringValue(g.Vault.String()),
		"exist":            structpb.NewBoolValue(g.Exists),
	}}
}
