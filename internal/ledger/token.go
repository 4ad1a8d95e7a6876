// Package ledger provides in-memory collaborators that behave like deployed
// contracts: a fungible token with balances and allowances, and a swap
// router trading at a fixed rate.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/algomatic/strategy-manager/pkg/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("negative amount")
)

// Token is an in-memory fungible token.
//
// TransferFrom moves funds directly from the owner's balance: the manager
// is trusted as the pulling party. Allowances are tracked for spenders such
// as routers, which debit them through Spend.
type Token struct {
	addr   types.Address
	symbol string

	mu         sync.Mutex
	balances   map[types.Address]*big.Int
	allowances map[types.Address]map[types.Address]*big.Int
}

// NewToken creates an empty token deployed at addr.
func NewToken(addr types.Address, symbol string) *Token {
	return &Token{
		addr:       addr,
		symbol:     symbol,
		balances:   make(map[types.Address]*big.Int),
		allowances: make(map[types.Address]map[types.Address]*big.Int),
	}
}

// Address implements types.Addressable.
func (t *Token) Address() types.Address { return t.addr }

// Symbol returns the token's ticker.
func (t *Token) Symbol() string { return t.symbol }

// Mint credits amount to account.
func (t *Token) Mint(account types.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(account, amount)
}

// BalanceOf returns a copy of account's balance.
func (t *Token) BalanceOf(account types.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Allowance returns how much spender may still pull from owner.
func (t *Token) Allowance(owner, spender types.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// TransferFrom implements types.Token. Insufficient funds report false
// without an error, like an ERC-20 that returns its status.
func (t *Token) TransferFrom(_ context.Context, from, to types.Address, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() < 0 {
		return false, ErrNegativeAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balanceLocked(from).Cmp(amount) < 0 {
		return false, nil
	}
	t.debit(from, amount)
	t.credit(to, amount)
	return true, nil
}

// Approve implements types.Token.
func (t *Token) Approve(_ context.Context, owner, spender types.Address, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() < 0 {
		return false, ErrNegativeAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[types.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
	return true, nil
}

// Spend lets spender move amount from owner to `to`, consuming allowance.
func (t *Token) Spend(spender, owner, to types.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowed := t.allowances[owner][spender]
	if allowed == nil || allowed.Cmp(amount) < 0 {
		return fmt.Errorf("spender %s over allowance of %s on %s", spender, owner, t.symbol)
	}
	if t.balanceLocked(owner).Cmp(amount) < 0 {
		return fmt.Errorf("%s of %s: %w", t.symbol, owner, ErrInsufficientBalance)
	}
	allowed.Sub(allowed, amount)
	t.debit(owner, amount)
	t.credit(to, amount)
	return nil
}

// Checkpoint implements types.Revertible. The returned function restores
// every balance and allowance to its state at the time of the call.
func (t *Token) Checkpoint() func() {
	t.mu.Lock()
	balances := copyBalances(t.balances)
	allowances := make(map[types.Address]map[types.Address]*big.Int, len(t.allowances))
	for owner, spenders := range t.allowances {
		allowances[owner] = copyBalances(spenders)
	}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.balances = copyBalances(balances)
		t.allowances = make(map[types.Address]map[types.Address]*big.Int, len(allowances))
		for owner, spenders := range allowances {
			t.allowances[owner] = copyBalances(spenders)
		}
	}
}

func copyBalances(in map[types.Address]*big.Int) map[types.Address]*big.Int {
	out := make(map[types.Address]*big.Int, len(in))
	for k, v := range in {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

func (t *Token) balanceLocked(account types.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) credit(account types.Address, amount *big.Int) {
	b, ok := t.balances[account]
	if !ok {
		b = new(big.Int)
		t.balances[account] = b
	}
	b.Add(b, amount)
}

func (t *Token) debit(account types.Address, amount *big.Int) {
	b := t.balances[account]
	b.Sub(b, amount)
}

var (
	_ types.Token      = (*Token)(nil)
	_ types.Revertible = (*Token)(nil)
)
