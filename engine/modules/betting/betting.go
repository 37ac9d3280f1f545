// Package betting admits wagers into the ledger: validation, the duplicate
// guard, and stake collection from the configured payment source. The
// signature path additionally opens an operator-signed match in the same
// atomic unit.
package betting

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/crypto"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/engine/modules/matches"
	"github.com/euphoria-gg/betledger/engine/modules/vault"
	"github.com/euphoria-gg/betledger/events"
)

func init() {
	engine.Register(core.OpMakeBet, handleMakeBet)
	engine.Register(core.OpMakeBetWithSignature, handleMakeBetWithSignature)
}

func handleMakeBet(ctx *engine.Context, payload json.RawMessage) error {
	var p core.MakeBetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode make_bet payload: %w", err)
	}

	if err := placeBet(ctx, &p.Bet, p.Mode); err != nil {
		return err
	}

	ctx.Emit(events.Event{
		Type:   events.EventBet,
		CallID: ctx.Call.ID,
		Data:   betEventData(&p.Bet, p.Mode),
	})
	return nil
}

func handleMakeBetWithSignature(ctx *engine.Context, payload json.RawMessage) error {
	var p core.MakeBetWithSignaturePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode make_bet_with_signature payload: %w", err)
	}

	owner, err := ctx.State.Owner()
	if err != nil {
		return err
	}
	ownerPub, err := crypto.PubKeyFromHex(owner)
	if err != nil {
		return fmt.Errorf("stored owner key: %w", err)
	}
	if err := crypto.Verify(ownerPub, []byte(p.NewMatch.Hash()), p.MatchSignature); err != nil {
		return core.ErrBadSignature
	}

	if p.Bet.MatchTypeID != p.NewMatch.TypeID || p.Bet.MatchID != p.NewMatch.ID {
		return fmt.Errorf("bet targets match (%d, %d) but signed match is (%d, %d)",
			p.Bet.MatchTypeID, p.Bet.MatchID, p.NewMatch.TypeID, p.NewMatch.ID)
	}

	// The signed match may already be on the ledger from an earlier call that
	// carried the same signature. That is fine: the bet just joins it.
	exists, err := ctx.State.HasMatch(p.NewMatch.TypeID, p.NewMatch.ID)
	if err != nil {
		return err
	}
	if !exists {
		if err := matches.Add(ctx.State, &p.NewMatch); err != nil {
			return err
		}
		ctx.Emit(events.Event{
			Type:   events.EventMatchAdditionOne,
			CallID: ctx.Call.ID,
			Data:   map[string]any{"match": p.NewMatch},
		})
	}

	if err := placeBet(ctx, &p.Bet, p.Mode); err != nil {
		return err
	}

	ctx.Emit(events.Event{
		Type:   events.EventBetV2,
		CallID: ctx.Call.ID,
		Data:   betEventData(&p.Bet, p.Mode),
	})
	return nil
}

// placeBet runs the full admission sequence: identity, window, stake size,
// outcome, payment mode, duplicate guard, then funding. Checks are ordered so
// cheap rejections happen before any state is touched.
func placeBet(ctx *engine.Context, bet *core.Bet, mode core.PaymentMode) error {
	if bet.Bettor != ctx.Call.From {
		return core.ErrBettorNotSender
	}

	m, err := ctx.State.GetMatch(bet.MatchTypeID, bet.MatchID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrMatchUnavailable
		}
		return err
	}
	if m.IsFinished || ctx.Now >= m.StartTimestamp {
		return core.ErrMatchUnavailable
	}

	if bet.Asset.Amount < core.MinimumBetAmount {
		return core.ErrBetTooSmall
	}
	if !m.HasOutcome(bet.BetOn) {
		return fmt.Errorf("%w: %d", core.ErrUnknownOutcome, bet.BetOn)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidPayment, mode)
	}

	hash := bet.Hash()
	seen, err := ctx.State.BetSeen(hash)
	if err != nil {
		return err
	}
	if seen {
		return core.ErrDuplicateBet
	}

	if err := collectStake(ctx, bet, mode); err != nil {
		return err
	}
	return ctx.State.MarkBet(hash)
}

// collectStake moves the stake according to the payment mode. In the hybrid
// mode the ledger balance drains first and only the shortfall is pulled from
// the wallet, so a fully covered bet never touches the token at all.
func collectStake(ctx *engine.Context, bet *core.Bet, mode core.PaymentMode) error {
	amount := bet.Asset.Amount
	tokAddr := bet.Asset.Token

	switch mode {
	case core.BalancePayment:
		bal, err := ctx.State.Balance(bet.Bettor, tokAddr)
		if err != nil {
			return err
		}
		if bal < amount {
			return core.ErrInsufficientBalance
		}
		return vault.Debit(ctx.State, bet.Bettor, tokAddr, amount)

	case core.WalletPayment:
		tok, err := ctx.Tokens.Get(tokAddr)
		if err != nil {
			return err
		}
		return tok.TransferFrom(ctx.Custody, bet.Bettor, ctx.Custody, amount)

	case core.WalletBalancePayment:
		bal, err := ctx.State.Balance(bet.Bettor, tokAddr)
		if err != nil {
			return err
		}
		use := bal
		if use > amount {
			use = amount
		}
		if use > 0 {
			if err := vault.Debit(ctx.State, bet.Bettor, tokAddr, use); err != nil {
				return err
			}
		}
		if rem := amount - use; rem > 0 {
			tok, err := ctx.Tokens.Get(tokAddr)
			if err != nil {
				return err
			}
			if err := tok.TransferFrom(ctx.Custody, bet.Bettor, ctx.Custody, rem); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: %d", core.ErrInvalidPayment, mode)
	}
}

func betEventData(bet *core.Bet, mode core.PaymentMode) map[string]any {
	return map[string]any{
		"bet":      bet,
		"bet_hash": bet.Hash(),
		"mode":     mode,
	}
}
