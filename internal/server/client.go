package server

import (
	"context"
	"math/big"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the StrategyManager service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a client over conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with in and returns the decoded response.
func (c *Client) Call(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterFarmStrategy registers the collaborator at address as a farm strategy.
func (c *Client) RegisterFarmStrategy(ctx context.Context, name, address string) error {
	_, err := c.Call(ctx, MethodRegisterFarmStrategy, map[string]any{"name": name, "address": address})
	return err
}

// RegisterHarvestStrategy registers the collaborator at address as a harvest strategy.
func (c *Client) RegisterHarvestStrategy(ctx context.Context, name, address string) error {
	_, err := c.Call(ctx, MethodRegisterHarvestStrategy, map[string]any{"name": name, "address": address})
	return err
}

// RegisterCollector registers the collaborator at address as a collector.
func (c *Client) RegisterCollector(ctx context.Context, name, address string) error {
	_, err := c.Call(ctx, MethodRegisterCollector, map[string]any{"name": name, "address": address})
	return err
}

// CreateStrategyGroup creates a group from registered names.
func (c *Client) CreateStrategyGroup(ctx context.Context, groupName string, farmNames []string, harvestName, collectorName string) (*structpb.Struct, error) {
	farms := make([]any, len(farmNames))
	for i, n := range farmNames {
		farms[i] = n
	}
	return c.Call(ctx, MethodCreateStrategyGroup, map[string]any{
		"group_name":       groupName,
		"farm_strategies":  farms,
		"harvest_strategy": harvestName,
		"collector":        collectorName,
	})
}

// Execute runs groupName with amount of asset pulled from caller.
func (c *Client) Execute(ctx context.Context, caller, groupName, asset string, amount *big.Int) (*structpb.Struct, error) {
	return c.Call(ctx, MethodExecute, map[string]any{
		"caller":     caller,
		"group_name": groupName,
		"asset":      asset,
		"amount":     amount.String(),
	})
}

// StrategiesGroup fetches a group record.
func (c *Client) StrategiesGroup(ctx context.Context, groupName string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodStrategiesGroup, map[string]any{"group_name": groupName})
}
