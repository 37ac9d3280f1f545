// Package token models the external fungible-token contracts the ledger
// collaborates with. The ledger never assumes a transfer succeeded silently:
// every pull and push checks the returned error and aborts the whole call
// on failure.
package token

import (
	"errors"
	"fmt"
	"sync"
)

// Failure reasons. ErrInsufficientAllowance's text mirrors the revert reason
// clients already match on.
var (
	ErrInsufficientAllowance = errors.New("Insufficient allowance")
	ErrInsufficientFunds     = errors.New("transfer amount exceeds balance")
	ErrUnknownToken          = errors.New("unknown token")
)

// Token is the transfer surface of one fungible token. All parties are
// identified by account strings; the caller supplies its own identity where
// the token needs to know who is spending an allowance.
type Token interface {
	// Transfer moves amount from one account to another.
	Transfer(from, to string, amount uint64) error
	// TransferFrom moves amount out of from on the authority of spender's
	// allowance, decrementing it.
	TransferFrom(spender, from, to string, amount uint64) error
	// Approve lets spender move up to amount out of owner's balance.
	Approve(owner, spender string, amount uint64) error
	Allowance(owner, spender string) (uint64, error)
	BalanceOf(account string) (uint64, error)
}

// Bank resolves token addresses to Token implementations. Safe for
// concurrent registration and lookup.
type Bank struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{tokens: make(map[string]Token)}
}

// Register binds addr to t. Re-registering an address replaces the binding.
func (b *Bank) Register(addr string, t Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[addr] = t
}

// Get returns the token registered at addr.
func (b *Bank) Get(addr string) (Token, error) {
	b.mu.RLock()
	t, ok := b.tokens[addr]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return t, nil
}
