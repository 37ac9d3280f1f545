package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/crypto"
)

func TestKeystoreRoundTrip(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.key")

	if err := SaveKey(path, "hunter2", w.PrivKey()); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadKey(path, "hunter2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Public().Hex() != w.PubKey() {
		t.Error("loaded key does not match saved key")
	}
}

func TestKeystoreRecordsKDFParams(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.key")
	if err := SaveKey(path, "hunter2", w.PrivKey()); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		t.Fatalf("keystore not valid json: %v", err)
	}
	if ks.KDFIterations != kdfIterations {
		t.Errorf("kdf_iterations: got %d want %d", ks.KDFIterations, kdfIterations)
	}

	// The stored work factor is the one used on load: tampering with it must
	// derive a different key and fail decryption.
	ks.KDFIterations = kdfIterations / 2
	tampered, err := json.Marshal(ks)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, tampered, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadKey(path, "hunter2"); err == nil {
		t.Error("load ignored the recorded kdf iterations")
	}
}

func TestKeystoreWrongPassword(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.key")
	if err := SaveKey(path, "correct", w.PrivKey()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := LoadKey(path, "wrong"); err == nil {
		t.Fatal("expected load with wrong password to fail")
	}
}

func TestNewCallIsSigned(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	call, err := w.MakeBet(3, core.Bet{
		Bettor: w.PubKey(), MatchID: 1, MatchTypeID: 1000,
		BetOn: core.OutcomeHome,
		Asset: core.Asset{Token: "tok", Amount: 2000},
	}, core.WalletPayment)
	if err != nil {
		t.Fatalf("make bet call: %v", err)
	}
	if call.Nonce != 3 || call.Op != core.OpMakeBet {
		t.Errorf("call fields: nonce %d op %s", call.Nonce, call.Op)
	}
	if err := call.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestSignMatchVerifiesAgainstWalletKey(t *testing.T) {
	operator, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	m := core.Match{ID: 1, TypeID: 1000, Odds: []core.Odds{{Outcome: core.OutcomeHome, Value: 2}}}
	sig := operator.SignMatch(&m)

	pub, err := crypto.PubKeyFromHex(operator.PubKey())
	if err != nil {
		t.Fatal(err)
	}
	if err := crypto.Verify(pub, []byte(m.Hash()), sig); err != nil {
		t.Fatalf("match signature did not verify: %v", err)
	}

	m.StartTimestamp = 99
	if err := crypto.Verify(pub, []byte(m.Hash()), sig); err == nil {
		t.Fatal("signature still valid after match changed")
	}
}
