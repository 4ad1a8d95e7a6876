// Package uniswap implements a farm strategy that swaps a group's funds
// from one token to another through a Uniswap V2 style router.
package uniswap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/types"
)

// Revert reasons of the deployed strategy. They keep the contract's
// capitalized wording, so they do not follow Go error string style.
var (
	// ErrDuplicateConfig is returned when a group is configured twice.
	ErrDuplicateConfig = errors.New("The strategy group name already exist")
	// ErrUnknownConfig is returned when executing a group that was never configured.
	ErrUnknownConfig = errors.New("The strategy group is not configured in the swapping strategy")
	// ErrApproveFailed is returned when the input token refuses the router allowance.
	ErrApproveFailed = errors.New("The router allowance was not approved")
)

// Router is the subset of a Uniswap V2 router the strategy uses.
type Router interface {
	types.Addressable
	// SwapExactTokensForTokens swaps amountIn along path and sends the output
	// to `to`. It returns the amounts of every hop.
	SwapExactTokensForTokens(
		ctx context.Context,
		amountIn, amountOutMin *big.Int,
		path []types.Address,
		to types.Address,
		deadline time.Time,
	) ([]*big.Int, error)
}

// Configuration is the per-group swap pair.
type Configuration struct {
	TokenIn  types.Token
	TokenOut types.Token
}

// Strategy swaps TokenIn into TokenOut for every configured group.
type Strategy struct {
	addr     types.Address
	router   Router
	configs  map[string]Configuration
	log      *events.Log
	logger   *slog.Logger
	now      func() time.Time
	deadline time.Duration
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithClock overrides the clock used to compute swap deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Strategy) { s.now = now }
}

// WithDeadline sets how long after execution a swap stays valid.
func WithDeadline(d time.Duration) Option {
	return func(s *Strategy) { s.deadline = d }
}

// WithLogger sets the strategy logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Strategy) { s.logger = logger }
}

// New creates a swapping strategy deployed at addr that trades through router.
func New(addr types.Address, router Router, opts ...Option) *Strategy {
	s := &Strategy{
		addr:     addr,
		router:   router,
		configs:  make(map[string]Configuration),
		log:      &events.Log{},
		now:      time.Now,
		deadline: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Address implements types.Addressable.
func (s *Strategy) Address() types.Address { return s.addr }

// IsStrategy implements types.StrategyProbe.
func (s *Strategy) IsStrategy() bool { return true }

// Events returns the strategy's own event log.
func (s *Strategy) Events() *events.Log { return s.log }

// Checkpoint implements types.Revertible over the strategy's event log.
func (s *Strategy) Checkpoint() func() { return s.log.Checkpoint() }

// Configure registers the swap pair for a group. A group can be configured once.
func (s *Strategy) Configure(groupName string, tokenIn, tokenOut types.Token) error {
	if _, ok := s.configs[groupName]; ok {
		return fmt.Errorf("configuring %q: %w", groupName, ErrDuplicateConfig)
	}
	if tokenIn == nil || tokenOut == nil {
		return fmt.Errorf("configuring %q: both tokens are required", groupName)
	}
	s.configs[groupName] = Configuration{TokenIn: tokenIn, TokenOut: tokenOut}
	s.logger.Info("Configured swapping strategy",
		"group", groupName,
		"token_in", tokenIn.Address(),
		"token_out", tokenOut.Address(),
	)
	return nil
}

// Configuration returns the swap pair configured for a group.
func (s *Strategy) Configuration(groupName string) (Configuration, bool) {
	c, ok := s.configs[groupName]
	return c, ok
}

// Execute approves the router to spend amount of the vault's input token,
// swaps it into the output token with the proceeds sent back to the vault,
// and reports the swap result.
func (s *Strategy) Execute(ctx context.Context, groupName string, amount *big.Int, vault types.Address) (*big.Int, error) {
	cfg, ok := s.configs[groupName]
	if !ok {
		return nil, fmt.Errorf("executing %q: %w", groupName, ErrUnknownConfig)
	}

	approved, err := cfg.TokenIn.Approve(ctx, vault, s.router.Address(), amount)
	if err != nil {
		return nil, fmt.Errorf("approving router for %q: %w", groupName, err)
	}
	if !approved {
		return nil, fmt.Errorf("approving router for %q: %w", groupName, ErrApproveFailed)
	}

	path := []types.Address{cfg.TokenIn.Address(), cfg.TokenOut.Address()}
	amounts, err := s.router.SwapExactTokensForTokens(ctx, amount, big.NewInt(0), path, vault, s.now().Add(s.deadline))
	if err != nil {
		return nil, fmt.Errorf("swapping for %q: %w", groupName, err)
	}
	if len(amounts) == 0 || amounts[0] == nil {
		return nil, fmt.Errorf("swapping for %q: router returned no amounts", groupName)
	}
	result := new(big.Int).Set(amounts[0])

	s.log.Emit(events.ExecutedUniswapSwappingStrategy{
		GroupName: groupName,
		TokenIn:   cfg.TokenIn.Address(),
		Amount:    new(big.Int).Set(amount),
		TokenOut:  cfg.TokenOut.Address(),
		Result:    result,
	})
	s.logger.Debug("Executed swapping strategy",
		"group", groupName,
		"amount", amount.String(),
		"result", result.String(),
		"vault", vault,
	)
	return result, nil
}

var (
	_ types.Strategy   = (*Strategy)(nil)
	_ types.Revertible = (*Strategy)(nil)
)
