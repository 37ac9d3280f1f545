// Package events is the ledger's synchronous pub/sub broker. Handlers run
// inline after a state change; the indexer, archive, notifier and gateway
// all attach here.
package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType labels what happened.
type EventType string

const (
	EventCallExecuted       EventType = "call_executed"
	EventMatchAddition      EventType = "match_addition"
	EventMatchAdditionOne   EventType = "match_addition_single"
	EventMatchCancel        EventType = "match_cancel"
	EventBet                EventType = "bet"
	EventBetV2              EventType = "bet_v2"
	EventMatchFinished      EventType = "match_finished"
	EventRootUpdated        EventType = "merkle_root_updated"
	EventRewardsDistributed EventType = "rewards_distributed"
	EventRewardsAdded       EventType = "rewards_added"
	EventFundsAdded         EventType = "funds_added"
	EventWithdrawal         EventType = "withdrawal"
	EventCommissionTransfer EventType = "commission_transfer"
	EventPaused             EventType = "paused"
	EventUnpaused           EventType = "unpaused"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	ID     string         `json:"id"` // random, assigned at emit time
	Type   EventType      `json:"type"`
	CallID string         `json:"call_id"`
	Time   int64          `json:"time"` // unix seconds
	Data   map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// wildcard receives every event regardless of type.
const wildcard EventType = "*"

// Emitter is a simple synchronous pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every event type.
func (e *Emitter) SubscribeAll(h Handler) {
	e.Subscribe(wildcard, h)
}

// Emit assigns the event an ID and timestamp, then delivers it synchronously
// to all subscribers for its type plus all wildcard subscribers. Each handler
// is guarded by panic recovery so a misbehaving subscriber cannot abort the
// call that emitted the event.
func (e *Emitter) Emit(ev Event) {
	ev.ID = uuid.NewString()
	if ev.Time == 0 {
		ev.Time = time.Now().Unix()
	}

	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[ev.Type])+len(e.handlers[wildcard]))
	handlers = append(handlers, e.handlers[ev.Type]...)
	handlers = append(handlers, e.handlers[wildcard]...)
	e.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[events] handler panicked for %s: %v", ev.Type, r)
				}
			}()
			h(ev)
		}()
	}
}
