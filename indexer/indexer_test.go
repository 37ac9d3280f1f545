package indexer_test

import (
	"errors"
	"testing"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/events"
	"github.com/euphoria-gg/betledger/indexer"
	"github.com/euphoria-gg/betledger/internal/testutil"
)

func emitBet(em *events.Emitter, typ events.EventType, bet core.Bet) {
	em.Emit(events.Event{
		Type: typ,
		Data: map[string]any{"bet": &bet, "bet_hash": bet.Hash(), "mode": core.WalletPayment},
	})
}

func TestIndexesBetsByBettor(t *testing.T) {
	db := testutil.NewMemDB()
	em := events.NewEmitter()
	idx := indexer.New(db, em)

	b1 := core.Bet{Bettor: "alice", MatchID: 1, MatchTypeID: 1000, Asset: core.Asset{Token: "tok", Amount: 2000}}
	b2 := core.Bet{Bettor: "alice", MatchID: 2, MatchTypeID: 1000, Asset: core.Asset{Token: "tok", Amount: 3000}}
	b3 := core.Bet{Bettor: "bob", MatchID: 1, MatchTypeID: 1000, Asset: core.Asset{Token: "tok", Amount: 5000}}

	emitBet(em, events.EventBet, b1)
	emitBet(em, events.EventBetV2, b2)
	emitBet(em, events.EventBet, b3)

	hashes, err := idx.GetBetsByBettor("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 2 {
		t.Fatalf("alice bets: got %d want 2", len(hashes))
	}
	if hashes[0] != b1.Hash() || hashes[1] != b2.Hash() {
		t.Error("bets out of admission order")
	}

	bobHashes, err := idx.GetBetsByBettor("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(bobHashes) != 1 {
		t.Fatalf("bob bets: got %d want 1", len(bobHashes))
	}
}

func TestGetBetReturnsFullRecord(t *testing.T) {
	db := testutil.NewMemDB()
	em := events.NewEmitter()
	idx := indexer.New(db, em)

	b := core.Bet{Bettor: "alice", MatchID: 7, MatchTypeID: 1000, BetOn: core.OutcomeAway, Asset: core.Asset{Token: "tok", Amount: 2000}, Salt: 5}
	emitBet(em, events.EventBet, b)

	got, err := idx.GetBet(b.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if *got != b {
		t.Errorf("stored bet mismatch: %+v vs %+v", got, b)
	}
}

func TestUnknownBettorIsEmpty(t *testing.T) {
	idx := indexer.New(testutil.NewMemDB(), events.NewEmitter())
	hashes, err := idx.GetBetsByBettor("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 0 {
		t.Errorf("expected no bets, got %d", len(hashes))
	}
}

func TestUnknownBetHash(t *testing.T) {
	idx := indexer.New(testutil.NewMemDB(), events.NewEmitter())
	if _, err := idx.GetBet("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
