package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/euphoria-gg/betledger/core"
)

// Handler is the function signature every ledger module must implement.
type Handler func(ctx *Context, payload json.RawMessage) error

// opSpec couples a handler with the gates the engine consults before
// dispatching to it.
type opSpec struct {
	handler    Handler
	ownerOnly  bool
	whenPaused bool // op stays callable while the ledger is paused
}

// Registry maps Ops to handlers. Thread-safe for concurrent registration.
type Registry struct {
	mu  sync.RWMutex
	ops map[core.Op]opSpec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[core.Op]opSpec)}
}

func (r *Registry) register(op core.Op, spec opSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op]; exists {
		panic(fmt.Sprintf("engine: handler already registered for op %q", op))
	}
	r.ops[op] = spec
}

func (r *Registry) lookup(op core.Op) (opSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.ops[op]
	return spec, ok
}

// globalRegistry is the package-level singleton that modules register into.
var globalRegistry = NewRegistry()

// Register adds a bettor-facing handler to the global registry.
// Module init() functions call this to self-register.
func Register(op core.Op, h Handler) {
	globalRegistry.register(op, opSpec{handler: h})
}

// RegisterOwnerOnly adds a handler that only the owner principal may invoke.
func RegisterOwnerOnly(op core.Op, h Handler) {
	globalRegistry.register(op, opSpec{handler: h, ownerOnly: true})
}

// registerWhenPaused is used by the engine's own admin ops that must stay
// reachable while the ledger is paused.
func registerWhenPaused(op core.Op, h Handler) {
	globalRegistry.register(op, opSpec{handler: h, ownerOnly: true, whenPaused: true})
}
