package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/algomatic/strategy-manager/pkg/types"
)

// TokenSource resolves token addresses for the router.
type TokenSource interface {
	Token(addr types.Address) (*Token, bool)
}

// Router swaps tokens at a fixed rate of num/den output units per input
// unit. The router holds its own output-token liquidity.
//
// A swap pulls the input from the recipient, which must have approved the
// router beforehand, and pays the output back to it.
type Router struct {
	addr    types.Address
	tokens  TokenSource
	rateNum *big.Int
	rateDen *big.Int
	now     func() time.Time
}

// NewRouter creates a router at addr trading at num/den.
func NewRouter(addr types.Address, tokens TokenSource, num, den int64) (*Router, error) {
	if num <= 0 || den <= 0 {
		return nil, fmt.Errorf("router %s: rate must be positive, got %d/%d", addr, num, den)
	}
	return &Router{
		addr:    addr,
		tokens:  tokens,
		rateNum: big.NewInt(num),
		rateDen: big.NewInt(den),
		now:     time.Now,
	}, nil
}

// Address implements types.Addressable.
func (r *Router) Address() types.Address { return r.addr }

// Quote returns the output amount for amountIn.
func (r *Router) Quote(amountIn *big.Int) *big.Int {
	out := new(big.Int).Mul(amountIn, r.rateNum)
	return out.Quo(out, r.rateDen)
}

// SwapExactTokensForTokens implements uniswap.Router for two-hop paths.
// The returned amounts are [amountOut, amountIn].
func (r *Router) SwapExactTokensForTokens(
	ctx context.Context,
	amountIn, amountOutMin *big.Int,
	path []types.Address,
	to types.Address,
	deadline time.Time,
) ([]*big.Int, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("router %s: only direct pairs are supported, got path of %d", r.addr, len(path))
	}
	if !deadline.IsZero() && r.now().After(deadline) {
		return nil, fmt.Errorf("router %s: EXPIRED", r.addr)
	}
	in, ok := r.tokens.Token(path[0])
	if !ok {
		return nil, fmt.Errorf("router %s: unknown token %s", r.addr, path[0])
	}
	out, ok := r.tokens.Token(path[1])
	if !ok {
		return nil, fmt.Errorf("router %s: unknown token %s", r.addr, path[1])
	}

	amountOut := r.Quote(amountIn)
	if amountOutMin != nil && amountOut.Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("router %s: INSUFFICIENT_OUTPUT_AMOUNT", r.addr)
	}
	if out.BalanceOf(r.addr).Cmp(amountOut) < 0 {
		return nil, fmt.Errorf("router %s: INSUFFICIENT_LIQUIDITY", r.addr)
	}

	if err := in.Spend(r.addr, to, r.addr, amountIn); err != nil {
		return nil, fmt.Errorf("router %s: %w", r.addr, err)
	}
	if _, err := out.TransferFrom(ctx, r.addr, to, amountOut); err != nil {
		return nil, fmt.Errorf("router %s: %w", r.addr, err)
	}
	return []*big.Int{amountOut, new(big.Int).Set(amountIn)}, nil
}
