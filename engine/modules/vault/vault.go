// Package vault is the per-(account, token) balance ledger: funds the system
// owes each account as winnings, refunds or deposits. Pure bookkeeping plus
// the two bettor-facing deposit/withdraw entry points.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/events"
)

func init() {
	engine.Register(core.OpAddFunds, handleAddFunds)
	engine.Register(core.OpWithdraw, handleWithdraw)
}

// Credit adds amount to an account's balance.
func Credit(st core.State, account, tok string, amount uint64) error {
	bal, err := st.Balance(account, tok)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-bal {
		return fmt.Errorf("balance overflow for %s on token %s", account, tok)
	}
	return st.SetBalance(account, tok, bal+amount)
}

// Debit removes amount from an account's balance. A debit below zero is an
// invariant violation, not a user-facing failure: every public path checks
// sufficiency first and reports its own reason.
func Debit(st core.State, account, tok string, amount uint64) error {
	bal, err := st.Balance(account, tok)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("invariant: debit %d exceeds balance %d for %s on token %s",
			amount, bal, account, tok)
	}
	return st.SetBalance(account, tok, bal-amount)
}

func handleAddFunds(ctx *engine.Context, payload json.RawMessage) error {
	var p core.AddFundsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode add_funds payload: %w", err)
	}
	if p.Asset.Amount == 0 {
		return errors.New("deposit amount must be > 0")
	}

	tok, err := ctx.Tokens.Get(p.Asset.Token)
	if err != nil {
		return err
	}
	if err := tok.TransferFrom(ctx.Custody, ctx.Call.From, ctx.Custody, p.Asset.Amount); err != nil {
		return err
	}
	if err := Credit(ctx.State, ctx.Call.From, p.Asset.Token, p.Asset.Amount); err != nil {
		return err
	}

	ctx.Emit(events.Event{
		Type:   events.EventFundsAdded,
		CallID: ctx.Call.ID,
		Data: map[string]any{
			"account": ctx.Call.From,
			"token":   p.Asset.Token,
			"amount":  p.Asset.Amount,
		},
	})
	return nil
}

func handleWithdraw(ctx *engine.Context, payload json.RawMessage) error {
	var p core.WithdrawPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw payload: %w", err)
	}

	bal, err := ctx.State.Balance(ctx.Call.From, p.Token)
	if err != nil {
		return err
	}
	if bal < p.Amount {
		return core.ErrInsufficientWithdraw
	}

	// Debit before the outbound transfer: even if the token implementation
	// calls back into the ledger, the balance already reflects the payout.
	if err := Debit(ctx.State, ctx.Call.From, p.Token, p.Amount); err != nil {
		return err
	}
	tok, err := ctx.Tokens.Get(p.Token)
	if err != nil {
		return err
	}
	if err := tok.Transfer(ctx.Custody, ctx.Call.From, p.Amount); err != nil {
		return err
	}

	ctx.Emit(events.Event{
		Type:   events.EventWithdrawal,
		CallID: ctx.Call.ID,
		Data: map[string]any{
			"account": ctx.Call.From,
			"token":   p.Token,
			"amount":  p.Amount,
		},
	})
	return nil
}
