package core

import (
	"testing"

	"github.com/euphoria-gg/betledger/crypto"
)

func signedCall(t *testing.T) (*Call, crypto.PrivateKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	call, err := NewCall(OpAddFunds, pub.Hex(), 0, AddFundsPayload{
		Asset: Asset{Token: "tok", Amount: 2000},
	})
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	call.Sign(priv)
	return call, priv
}

func TestCallSignVerify(t *testing.T) {
	call, _ := signedCall(t)
	if call.ID == "" {
		t.Fatal("sign did not set the call ID")
	}
	if err := call.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCallVerifyRejectsTampering(t *testing.T) {
	call, _ := signedCall(t)
	call.Nonce = 99
	if err := call.Verify(); err == nil {
		t.Fatal("expected verification failure after nonce change")
	}

	call, _ = signedCall(t)
	call.Payload = []byte(`{"asset":{"token":"tok","amount":999999}}`)
	if err := call.Verify(); err == nil {
		t.Fatal("expected verification failure after payload change")
	}
}

func TestCallVerifyRejectsWrongSender(t *testing.T) {
	call, _ := signedCall(t)
	_, otherPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	call.From = otherPub.Hex()
	if err := call.Verify(); err == nil {
		t.Fatal("expected verification failure with swapped sender")
	}
}
