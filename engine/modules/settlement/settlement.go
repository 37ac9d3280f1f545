// Package settlement resolves finished matches and distributes value: reward
// credits into vault balances, commission accrual, and the owner-funded
// top-up and commission payout paths. Reward and commission figures are
// computed off the ledger and applied as given; the new merkle root is the
// auditable commitment to that computation.
package settlement

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/engine/modules/vault"
	"github.com/euphoria-gg/betledger/events"
)

func init() {
	engine.RegisterOwnerOnly(core.OpFinishMatch, handleFinishMatch)
	engine.RegisterOwnerOnly(core.OpTransferCommission, handleTransferCommission)
	engine.RegisterOwnerOnly(core.OpAddRewards, handleAddRewards)
}

func handleFinishMatch(ctx *engine.Context, payload json.RawMessage) error {
	var p core.FinishMatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode finish_match payload: %w", err)
	}

	m, err := ctx.State.GetMatch(p.Match.TypeID, p.Match.ID)
	if err != nil {
		return fmt.Errorf("match (%d, %d): %w", p.Match.TypeID, p.Match.ID, err)
	}
	if m.IsFinished {
		return core.ErrMatchFinished
	}
	if ctx.Now < m.StartTimestamp {
		return core.ErrMatchNotStarted
	}
	if len(p.Rewards) == 0 {
		return core.ErrEmptyRewards
	}
	root, err := ctx.State.Root()
	if err != nil {
		return err
	}
	if p.NewRoot == root {
		return core.ErrSameRoot
	}

	m.IsFinished = true
	if err := ctx.State.SetMatch(m); err != nil {
		return err
	}
	if err := ctx.State.SetRoot(p.NewRoot); err != nil {
		return err
	}
	if err := distribute(ctx.State, p.Rewards); err != nil {
		return err
	}
	for _, c := range p.Commissions {
		if err := accrueCommission(ctx.State, c.Token, c.Amount); err != nil {
			return err
		}
	}

	ctx.Emit(events.Event{
		Type:   events.EventMatchFinished,
		CallID: ctx.Call.ID,
		Data: map[string]any{
			"match":  p.Match,
			"result": p.Result,
		},
	})
	ctx.Emit(events.Event{
		Type:   events.EventRootUpdated,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"root": p.NewRoot},
	})
	ctx.Emit(events.Event{
		Type:   events.EventRewardsDistributed,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"rewards": p.Rewards},
	})
	return nil
}

func handleTransferCommission(ctx *engine.Context, payload json.RawMessage) error {
	var p core.TransferCommissionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer_commission payload: %w", err)
	}

	for _, asset := range p.Assets {
		accrued, err := ctx.State.CommissionBalance(asset.Token)
		if err != nil {
			return err
		}
		if accrued < asset.Amount {
			return fmt.Errorf("%w: commission %d < %d on token %s",
				core.ErrInsufficientBalance, accrued, asset.Amount, asset.Token)
		}
		if err := ctx.State.SetCommissionBalance(asset.Token, accrued-asset.Amount); err != nil {
			return err
		}
		tok, err := ctx.Tokens.Get(asset.Token)
		if err != nil {
			return err
		}
		if err := tok.Transfer(ctx.Custody, p.Recipient, asset.Amount); err != nil {
			return err
		}
	}

	ctx.Emit(events.Event{
		Type:   events.EventCommissionTransfer,
		CallID: ctx.Call.ID,
		Data: map[string]any{
			"recipient": p.Recipient,
			"assets":    p.Assets,
		},
	})
	return nil
}

// handleAddRewards credits rewards outside a settlement, funded from the
// caller's own wallet: the per-token totals are pulled into custody first, so
// the ledger never credits value it does not hold.
func handleAddRewards(ctx *engine.Context, payload json.RawMessage) error {
	var p core.AddRewardsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode add_rewards payload: %w", err)
	}
	if len(p.Rewards) == 0 {
		return core.ErrEmptyRewards
	}

	totals := map[string]uint64{}
	for _, r := range p.Rewards {
		for _, asset := range r.Tokens {
			if asset.Amount > math.MaxUint64-totals[asset.Token] {
				return fmt.Errorf("reward total overflow on token %s", asset.Token)
			}
			totals[asset.Token] += asset.Amount
		}
	}
	for tokAddr, total := range totals {
		tok, err := ctx.Tokens.Get(tokAddr)
		if err != nil {
			return err
		}
		if err := tok.TransferFrom(ctx.Custody, ctx.Call.From, ctx.Custody, total); err != nil {
			return err
		}
	}
	if err := distribute(ctx.State, p.Rewards); err != nil {
		return err
	}

	ctx.Emit(events.Event{
		Type:   events.EventRewardsAdded,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"rewards": p.Rewards},
	})
	return nil
}

func distribute(st core.State, rewards []core.Reward) error {
	for _, r := range rewards {
		for _, asset := range r.Tokens {
			if err := vault.Credit(st, r.Account, asset.Token, asset.Amount); err != nil {
				return err
			}
		}
	}
	return nil
}

func accrueCommission(st core.State, tok string, amount uint64) error {
	cur, err := st.CommissionBalance(tok)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-cur {
		return fmt.Errorf("commission overflow on token %s", tok)
	}
	return st.SetCommissionBalance(tok, cur+amount)
}
