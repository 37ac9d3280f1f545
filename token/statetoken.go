package token

import (
	"errors"
	"fmt"
	"math"

	"github.com/euphoria-gg/betledger/core"
)

// StateToken is a fungible-token ledger hosted inside the betting ledger's
// own state. Because its balances live behind the same snapshot/commit unit
// as every other state mutation, a failed call rolls the token movement back
// together with everything else — the closest a single process gets to the
// all-or-nothing semantics the settlement invariants need.
type StateToken struct {
	addr  string
	state core.State
}

// NewStateToken binds a token address to the ledger state.
func NewStateToken(addr string, state core.State) *StateToken {
	return &StateToken{addr: addr, state: state}
}

// Address returns the token's address identifier.
func (t *StateToken) Address() string {
	return t.addr
}

// Mint creates amount new units in to's balance, growing total supply.
func (t *StateToken) Mint(to string, amount uint64) error {
	if err := t.credit(to, amount); err != nil {
		return err
	}
	supply, err := t.state.TokenSupply(t.addr)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-supply {
		return fmt.Errorf("token %s: supply overflow", t.addr)
	}
	return t.state.SetTokenSupply(t.addr, supply+amount)
}

func (t *StateToken) Transfer(from, to string, amount uint64) error {
	bal, err := t.state.TokenBalance(t.addr, from)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, bal, amount)
	}
	if err := t.state.SetTokenBalance(t.addr, from, bal-amount); err != nil {
		return err
	}
	return t.credit(to, amount)
}

func (t *StateToken) TransferFrom(spender, from, to string, amount uint64) error {
	allowance, err := t.state.Allowance(t.addr, from, spender)
	if err != nil {
		return err
	}
	if allowance < amount {
		return fmt.Errorf("%w: approved %d, need %d", ErrInsufficientAllowance, allowance, amount)
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	return t.state.SetAllowance(t.addr, from, spender, allowance-amount)
}

func (t *StateToken) Approve(owner, spender string, amount uint64) error {
	if owner == "" || spender == "" {
		return errors.New("approve: owner and spender required")
	}
	return t.state.SetAllowance(t.addr, owner, spender, amount)
}

func (t *StateToken) Allowance(owner, spender string) (uint64, error) {
	return t.state.Allowance(t.addr, owner, spender)
}

func (t *StateToken) BalanceOf(account string) (uint64, error) {
	return t.state.TokenBalance(t.addr, account)
}

// TotalSupply returns the number of units ever minted.
func (t *StateToken) TotalSupply() (uint64, error) {
	return t.state.TokenSupply(t.addr)
}

func (t *StateToken) credit(account string, amount uint64) error {
	bal, err := t.state.TokenBalance(t.addr, account)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-bal {
		return fmt.Errorf("token %s: balance overflow for %s", t.addr, account)
	}
	return t.state.SetTokenBalance(t.addr, account, bal+amount)
}
