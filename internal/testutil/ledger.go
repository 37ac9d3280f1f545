package testutil

import (
	"testing"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/engine"
	_ "github.com/euphoria-gg/betledger/engine/modules/betting"
	_ "github.com/euphoria-gg/betledger/engine/modules/matches"
	_ "github.com/euphoria-gg/betledger/engine/modules/settlement"
	_ "github.com/euphoria-gg/betledger/engine/modules/vault"
	"github.com/euphoria-gg/betledger/events"
	"github.com/euphoria-gg/betledger/storage"
	"github.com/euphoria-gg/betledger/token"
	"github.com/euphoria-gg/betledger/wallet"
)

// TestToken is the token address tests place bets in.
const TestToken = "tok-eup"

// TestCustody is the ledger's custody account in tests.
const TestCustody = "betledger"

// Ledger is a fully wired in-memory ledger for tests: state, engine with all
// op modules registered, one state-hosted token, and an owner wallet.
type Ledger struct {
	State   *storage.StateDB
	Engine  *engine.Engine
	Emitter *events.Emitter
	Bank    *token.Bank
	Token   *token.StateToken
	Owner   *wallet.Wallet

	t      *testing.T
	nonces map[string]uint64
}

// NewLedger builds a Ledger over a fresh MemDB. The engine clock is pinned to
// Now so match windows are deterministic; adjust with SetClock if needed.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()

	state := NewState()
	emitter := events.NewEmitter()
	bank := token.NewBank()
	tok := token.NewStateToken(TestToken, state)
	bank.Register(TestToken, tok)

	owner, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate owner wallet: %v", err)
	}

	eng := engine.New(state, emitter, bank, TestCustody)
	eng.SetClock(func() int64 { return Now })
	if err := eng.Init(owner.PubKey()); err != nil {
		t.Fatalf("init engine: %v", err)
	}

	return &Ledger{
		State:   state,
		Engine:  eng,
		Emitter: emitter,
		Bank:    bank,
		Token:   tok,
		Owner:   owner,
		t:       t,
		nonces:  make(map[string]uint64),
	}
}

// Now is the fixed engine time used by NewLedger.
const Now int64 = 1_700_000_000

// Execute builds, signs and executes a call from w, tracking nonces per
// sender. The nonce is consumed only on success, matching engine semantics.
func (l *Ledger) Execute(w *wallet.Wallet, op core.Op, payload any) error {
	l.t.Helper()
	call, err := w.NewCall(op, l.nonces[w.PubKey()], payload)
	if err != nil {
		l.t.Fatalf("build %s call: %v", op, err)
	}
	if err := l.Engine.Execute(call); err != nil {
		return err
	}
	l.nonces[w.PubKey()]++
	return nil
}

// MustExecute is Execute that fails the test on error.
func (l *Ledger) MustExecute(w *wallet.Wallet, op core.Op, payload any) {
	l.t.Helper()
	if err := l.Execute(w, op, payload); err != nil {
		l.t.Fatalf("%s failed: %v", op, err)
	}
}

// NewBettor generates a wallet, mints amount test tokens to it and approves
// the custody account to spend them.
func (l *Ledger) NewBettor(amount uint64) *wallet.Wallet {
	l.t.Helper()
	w, err := wallet.Generate()
	if err != nil {
		l.t.Fatalf("generate bettor wallet: %v", err)
	}
	l.Fund(w, amount)
	return l.commitOrFail(w)
}

// Fund mints amount test tokens to w's wallet and approves custody spending.
func (l *Ledger) Fund(w *wallet.Wallet, amount uint64) {
	l.t.Helper()
	if amount > 0 {
		if err := l.Token.Mint(w.PubKey(), amount); err != nil {
			l.t.Fatalf("mint to bettor: %v", err)
		}
	}
	if err := l.Token.Approve(w.PubKey(), TestCustody, amount); err != nil {
		l.t.Fatalf("approve custody: %v", err)
	}
}

func (l *Ledger) commitOrFail(w *wallet.Wallet) *wallet.Wallet {
	l.t.Helper()
	if err := l.State.Commit(); err != nil {
		l.t.Fatalf("commit funding: %v", err)
	}
	return w
}

// OpenMatch registers a match via the owner that accepts bets until
// Now+3600, with even odds on home and away.
func (l *Ledger) OpenMatch(typeID, id uint64) core.Match {
	l.t.Helper()
	m := core.Match{
		ID:     id,
		TypeID: typeID,
		Odds: []core.Odds{
			{Outcome: core.OutcomeHome, Value: 2},
			{Outcome: core.OutcomeAway, Value: 2},
		},
		StartTimestamp: Now + 3600,
	}
	l.MustExecute(l.Owner, core.OpAddMatches, core.AddMatchesPayload{Matches: []core.Match{m}})
	return m
}
