package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "strategymanager.v1.StrategyManager"

// Method names.
const (
	MethodRegisterFarmStrategy    = "RegisterFarmStrategy"
	MethodRegisterHarvestStrategy = "RegisterHarvestStrategy"
	MethodRegisterCollector       = "RegisterCollector"
	MethodCreateStrategyGroup     = "CreateStrategyGroup"
	MethodExecute                 = "Execute"
	MethodFarmStrategy            = "FarmStrategy"
	MethodHarvestStrategy         = "HarvestStrategy"
	MethodCollector               = "Collector"
	MethodStrategiesGroup         = "StrategiesGroup"
)

// StrategyManagerServer is the server API for the StrategyManager service.
// Requests and responses are google.protobuf.Struct messages.
type StrategyManagerServer interface {
	RegisterFarmStrategy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterHarvestStrategy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterCollector(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateStrategyGroup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FarmStrategy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HarvestStrategy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Collector(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StrategiesGroup(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(StrategyManagerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, fn unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(StrategyManagerServer)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes the StrategyManager service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StrategyManagerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodRegisterFarmStrategy, StrategyManagerServer.RegisterFarmStrategy),
		unaryHandler(MethodRegisterHarvestStrategy, StrategyManagerServer.RegisterHarvestStrategy),
		unaryHandler(MethodRegisterCollector, StrategyManagerServer.RegisterCollector),
		unaryHandler(MethodCreateStrategyGroup, StrategyManagerServer.CreateStrategyGroup),
		unaryHandler(MethodExecute, StrategyManagerServer.Execute),
		unaryHandler(MethodFarmStrategy, StrategyManagerServer.FarmStrategy),
		unaryHandler(MethodHarvestStrategy, StrategyManagerServer.HarvestStrategy),
		unaryHandler(MethodCollector, StrategyManagerServer.Collector),
		unaryHandler(MethodStrategiesGroup, StrategyManagerServer.StrategiesGroup),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterStrategyManagerServer registers srv with s.
func RegisterStrategyManagerServer(s grpc.ServiceRegistrar, srv StrategyManagerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
