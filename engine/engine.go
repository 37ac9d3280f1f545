// Package engine executes signed ledger calls. Execution is strictly
// serialized: one call runs to completion (or fully reverts) before the next
// begins, so every public entry point is an atomic unit and no further
// locking is needed inside handlers.
package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/events"
	"github.com/euphoria-gg/betledger/token"
)

// Context is passed to every Handler and provides access to the ledger
// state, the triggering call, the token bank and the engine's custody
// identity on external tokens.
type Context struct {
	State   core.State
	Call    *core.Call
	Tokens  *token.Bank
	Custody string
	Now     int64 // unix seconds at call execution

	pending []events.Event
}

// Emit queues an event for delivery after the call commits. Events queued by
// a failing handler are discarded along with its state changes, so sinks
// never observe an effect that was rolled back.
func (ctx *Context) Emit(ev events.Event) {
	ctx.pending = append(ctx.pending, ev)
}

// Engine applies calls to the state using the global handler registry.
type Engine struct {
	mu      sync.Mutex
	state   core.State
	emitter *events.Emitter
	tokens  *token.Bank
	custody string
	now     func() int64
}

// New creates an Engine. custody is the account the ledger itself holds on
// external tokens: bet stakes and deposits are pulled into it, withdrawals
// and commission payouts flow out of it.
func New(state core.State, emitter *events.Emitter, tokens *token.Bank, custody string) *Engine {
	return &Engine{
		state:   state,
		emitter: emitter,
		tokens:  tokens,
		custody: custody,
		now:     func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the engine's time source. Tests use this to place match
// windows deterministically.
func (e *Engine) SetClock(now func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Custody returns the ledger's own account identifier on external tokens.
func (e *Engine) Custody() string {
	return e.custody
}

// Init records owner as the ledger's owner principal on first start. On
// subsequent starts it verifies the stored owner matches, so a reconfigured
// node cannot silently swap the authority.
func (e *Engine) Init(owner string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	stored, err := e.state.Owner()
	if err != nil {
		return err
	}
	if stored == "" {
		if err := e.state.SetOwner(owner); err != nil {
			return err
		}
		return e.state.Commit()
	}
	if stored != owner {
		return fmt.Errorf("configured owner %s does not match stored owner %s", owner, stored)
	}
	return nil
}

// Execute verifies and applies a single call with snapshot/rollback. On any
// failure every state change from the call is reverted; on success the write
// buffer is committed to durable storage before Execute returns.
func (e *Engine) Execute(call *core.Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := call.Verify(); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	spec, ok := globalRegistry.lookup(call.Op)
	if !ok {
		return fmt.Errorf("unknown op %q", call.Op)
	}

	// Gates are read-only, so they run before the snapshot.
	paused, err := e.state.Paused()
	if err != nil {
		return err
	}
	if paused && !spec.whenPaused {
		return core.ErrPaused
	}
	if spec.ownerOnly {
		owner, err := e.state.Owner()
		if err != nil {
			return err
		}
		if call.From != owner {
			return core.ErrNotOwner
		}
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	pending, err := e.apply(spec, call)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after call failure: %w (revert: %v)", err, revertErr)
		}
		return err
	}

	if err := e.state.Commit(); err != nil {
		return fmt.Errorf("commit call %s: %w", call.ID, err)
	}

	if e.emitter != nil {
		for _, ev := range pending {
			e.emitter.Emit(ev)
		}
		e.emitter.Emit(events.Event{
			Type:   events.EventCallExecuted,
			CallID: call.ID,
			Data:   map[string]any{"op": string(call.Op), "from": call.From},
		})
	}
	return nil
}

// apply bumps the sender's nonce, then dispatches to the handler. It runs
// inside the snapshot so a handler failure also unwinds the nonce. The
// returned events are the ones the handler queued; the caller delivers them
// only once the call has committed.
func (e *Engine) apply(spec opSpec, call *core.Call) ([]events.Event, error) {
	acc, err := e.state.GetAccount(call.From)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != call.Nonce {
		return nil, fmt.Errorf("invalid nonce: expected %d got %d", acc.Nonce, call.Nonce)
	}
	if acc.Nonce == math.MaxUint64 {
		return nil, fmt.Errorf("nonce overflow for account %s", call.From)
	}
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return nil, err
	}

	ctx := &Context{
		State:   e.state,
		Call:    call,
		Tokens:  e.tokens,
		Custody: e.custody,
		Now:     e.now(),
	}
	if err := spec.handler(ctx, call.Payload); err != nil {
		return nil, err
	}
	return ctx.pending, nil
}
