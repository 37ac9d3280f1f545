package engine

import (
	"encoding/json"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/events"
)

func init() {
	// Pause is not whenPaused: pausing an already-paused ledger fails at the
	// gate. Unpause must stay reachable while paused.
	RegisterOwnerOnly(core.OpPause, handlePause)
	registerWhenPaused(core.OpUnpause, handleUnpause)
}

func handlePause(ctx *Context, _ json.RawMessage) error {
	if err := ctx.State.SetPaused(true); err != nil {
		return err
	}
	ctx.Emit(events.Event{
		Type:   events.EventPaused,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"by": ctx.Call.From},
	})
	return nil
}

func handleUnpause(ctx *Context, _ json.RawMessage) error {
	paused, err := ctx.State.Paused()
	if err != nil {
		return err
	}
	if !paused {
		return core.ErrNotPaused
	}
	if err := ctx.State.SetPaused(false); err != nil {
		return err
	}
	ctx.Emit(events.Event{
		Type:   events.EventUnpaused,
		CallID: ctx.Call.ID,
		Data:   map[string]any{"by": ctx.Call.From},
	})
	return nil
}
