package rpc_test

import (
	"encoding/json"
	"testing"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/indexer"
	"github.com/euphoria-gg/betledger/internal/testutil"
	"github.com/euphoria-gg/betledger/rpc"
)

func newHandler(t *testing.T) (*rpc.Handler, *testutil.Ledger) {
	t.Helper()
	l := testutil.NewLedger(t)
	idx := indexer.New(testutil.NewMemDB(), l.Emitter)
	return rpc.NewHandler(l.Engine, idx), l
}

func dispatch(h *rpc.Handler, method string, params any) rpc.Response {
	raw, _ := json.Marshal(params)
	return h.Dispatch(rpc.Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
}

func TestSendCallExecutes(t *testing.T) {
	h, l := newHandler(t)
	bettor := l.NewBettor(10_000)

	call, err := bettor.AddFunds(0, core.Asset{Token: testutil.TestToken, Amount: 2_000})
	if err != nil {
		t.Fatal(err)
	}
	resp := dispatch(h, "sendCall", call)
	if resp.Error != nil {
		t.Fatalf("sendCall: %s", resp.Error.Message)
	}

	bal, _ := l.Engine.Balance(bettor.PubKey(), testutil.TestToken)
	if bal != 2_000 {
		t.Errorf("balance after rpc deposit: got %d want 2000", bal)
	}
}

func TestSendCallRejectsSpoofedID(t *testing.T) {
	h, l := newHandler(t)
	bettor := l.NewBettor(10_000)

	call, err := bettor.AddFunds(0, core.Asset{Token: testutil.TestToken, Amount: 2_000})
	if err != nil {
		t.Fatal(err)
	}
	spoofed := *call
	spoofed.ID = "attacker-chosen"
	resp := dispatch(h, "sendCall", &spoofed)
	if resp.Error != nil {
		t.Fatalf("sendCall: %s", resp.Error.Message)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result["call_id"] != call.Hash() {
		t.Errorf("call id not recomputed server-side: %v", result["call_id"])
	}
}

func TestSendCallSurfacesLedgerError(t *testing.T) {
	h, l := newHandler(t)
	stranger := l.NewBettor(0)

	call, err := stranger.NewCall(core.OpPause, 0, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	resp := dispatch(h, "sendCall", call)
	if resp.Error == nil {
		t.Fatal("expected error for non-owner pause")
	}
	if resp.Error.Code != rpc.CodeCallFailed {
		t.Errorf("error code: got %d want %d", resp.Error.Code, rpc.CodeCallFailed)
	}
	if resp.Error.Message != core.ErrNotOwner.Error() {
		t.Errorf("error message: got %q", resp.Error.Message)
	}
}

func TestReadMethods(t *testing.T) {
	h, l := newHandler(t)
	l.OpenMatch(1000, 1)

	resp := dispatch(h, "getMatchData", map[string]any{"type_id": 1000, "id": 1})
	if resp.Error != nil {
		t.Fatalf("getMatchData: %s", resp.Error.Message)
	}

	resp = dispatch(h, "isPaused", struct{}{})
	if resp.Error != nil {
		t.Fatalf("isPaused: %s", resp.Error.Message)
	}
	result := resp.Result.(map[string]any)
	if result["paused"] != false {
		t.Errorf("paused: %v", result["paused"])
	}

	resp = dispatch(h, "getNonce", map[string]any{"address": l.Owner.PubKey()})
	if resp.Error != nil {
		t.Fatalf("getNonce: %s", resp.Error.Message)
	}
}

func TestHashBetMatchesReplayGuard(t *testing.T) {
	h, l := newHandler(t)
	l.OpenMatch(1000, 1)
	bettor := l.NewBettor(10_000)

	b := core.Bet{
		Bettor: bettor.PubKey(), MatchID: 1, MatchTypeID: 1000,
		BetOn: core.OutcomeHome,
		Asset: core.Asset{Token: testutil.TestToken, Amount: 2_000},
	}
	resp := dispatch(h, "hashBet", map[string]any{"bet": b})
	if resp.Error != nil {
		t.Fatalf("hashBet: %s", resp.Error.Message)
	}
	result := resp.Result.(map[string]any)
	if result["seen"] != false {
		t.Error("unseen bet reported as seen")
	}

	l.MustExecute(bettor, core.OpMakeBet, core.MakeBetPayload{Bet: b, Mode: core.WalletPayment})

	resp = dispatch(h, "hashBet", map[string]any{"bet": b})
	result = resp.Result.(map[string]any)
	if result["seen"] != true {
		t.Error("admitted bet not reported as seen")
	}
	if result["hash"] != b.Hash() {
		t.Errorf("hash mismatch: %v", result["hash"])
	}
}

func TestUnknownMethod(t *testing.T) {
	h, _ := newHandler(t)
	resp := dispatch(h, "noSuchMethod", struct{}{})
	if resp.Error == nil || resp.Error.Code != rpc.CodeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp.Error)
	}
}
