// Package indexer maintains secondary indexes over admitted bets so clients
// can query a bettor's history by key without scanning full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/events"
	"github.com/euphoria-gg/betledger/storage"
)

const (
	prefixBettorBets = "idx:bettor:bets:"
	prefixBet        = "idx:bet:"
)

// Indexer subscribes to ledger events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to bet admissions.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventBet, idx.onBet)
	emitter.Subscribe(events.EventBetV2, idx.onBet)
	return idx
}

// GetBetsByBettor returns the hashes of all bets placed by the given pubkey,
// in admission order.
func (idx *Indexer) GetBetsByBettor(bettor string) ([]string, error) {
	return idx.getList(prefixBettorBets + bettor)
}

// GetBet returns the full bet recorded under hash.
func (idx *Indexer) GetBet(hash string) (*core.Bet, error) {
	data, err := idx.db.Get([]byte(prefixBet + hash))
	if err != nil {
		return nil, err
	}
	var bet core.Bet
	if err := json.Unmarshal(data, &bet); err != nil {
		return nil, fmt.Errorf("indexer unmarshal bet: %w", err)
	}
	return &bet, nil
}

func (idx *Indexer) onBet(ev events.Event) {
	hash, _ := ev.Data["bet_hash"].(string)
	if hash == "" {
		return
	}
	// Data["bet"] is either a *core.Bet (in-process emit) or a decoded map.
	// Round-trip through JSON handles both.
	raw, err := json.Marshal(ev.Data["bet"])
	if err != nil {
		return
	}
	var bet core.Bet
	if err := json.Unmarshal(raw, &bet); err != nil || bet.Bettor == "" {
		return
	}
	if err := idx.db.Set([]byte(prefixBet+hash), raw); err != nil {
		return
	}
	_ = idx.addToList(prefixBettorBets+bet.Bettor, hash)
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, _ := idx.getList(key)
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
