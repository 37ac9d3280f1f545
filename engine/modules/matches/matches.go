// Package matches is the match registry: batch insertion of match
// definitions and cancellation, which closes a match's betting window
// without finishing it. Both ops are owner-gated.
package matches

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/engine/modules/vault"
	"github.com/euphoria-gg/betledger/events"
)

func init() {
	engine.RegisterOwnerOnly(core.OpAddMatches, handleAddMatches)
	engine.RegisterOwnerOnly(core.OpCancelMatches, handleCancelMatches)
}

// Add validates and stores one match. Shared with the betting module's
// signature path, which opens a single operator-signed match.
func Add(st core.State, m *core.Match) error {
	if len(m.Odds) == 0 {
		return errors.New("match must define at least one outcome")
	}
	exists, err := st.HasMatch(m.TypeID, m.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: (%d, %d)", core.ErrDuplicateMatch, m.TypeID, m.ID)
	}
	stored := *m
	stored.IsFinished = false // only settlement may finish a match
	return st.SetMatch(&stored)
}

func handleAddMatches(ctx *engine.Context, payload json.RawMessage) error {
	var p core.AddMatchesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode add_matches payload: %w", err)
	}
	if len(p.Matches) == 0 {
		return errors.New("no matches to add")
	}

	// Atomic batch: the first invalid match fails the whole call.
	for i := range p.Matches {
		if err := Add(ctx.State, &p.Matches[i]); err != nil {
			return err
		}
	}

	ctx.Emit(events.Event{
		Type:   events.EventMatchAddition,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"matches": p.Matches},
	})
	return nil
}

func handleCancelMatches(ctx *engine.Context, payload json.RawMessage) error {
	var p core.CancelMatchesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode cancel_matches payload: %w", err)
	}

	// Pull each match's start back to now, closing its window immediately.
	// The match is not finished: it can still be settled later. A match that
	// already finished has nothing left to cancel.
	for _, ref := range p.Matches {
		m, err := ctx.State.GetMatch(ref.TypeID, ref.ID)
		if err != nil {
			return fmt.Errorf("match (%d, %d): %w", ref.TypeID, ref.ID, err)
		}
		if m.IsFinished {
			return fmt.Errorf("cancel match (%d, %d): %w", ref.TypeID, ref.ID, core.ErrMatchFinished)
		}
		m.StartTimestamp = ctx.Now
		if err := ctx.State.SetMatch(m); err != nil {
			return err
		}
	}

	// Refunds are supplied by the operator, like settlement rewards; the
	// ledger applies them without recomputing from stored bets.
	for _, refund := range p.Refunds {
		for _, asset := range refund.Tokens {
			if err := vault.Credit(ctx.State, refund.Account, asset.Token, asset.Amount); err != nil {
				return err
			}
		}
	}

	ctx.Emit(events.Event{
		Type:   events.EventMatchCancel,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"matches": p.Matches},
	})
	return nil
}
