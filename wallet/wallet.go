// Package wallet provides key management and call-building helpers.
package wallet

import (
	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/crypto"
)

// Wallet holds a key pair and provides call-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key (used as "from").
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short human-readable address (first 20 bytes of SHA-256(pubkey)).
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// NewCall creates a signed call. nonce must match the account's current nonce.
func (w *Wallet) NewCall(op core.Op, nonce uint64, payload any) (*core.Call, error) {
	call, err := core.NewCall(op, w.pub.Hex(), nonce, payload)
	if err != nil {
		return nil, err
	}
	call.Sign(w.priv)
	return call, nil
}

// MakeBet creates a signed bet placement call.
func (w *Wallet) MakeBet(nonce uint64, bet core.Bet, mode core.PaymentMode) (*core.Call, error) {
	return w.NewCall(core.OpMakeBet, nonce, core.MakeBetPayload{Bet: bet, Mode: mode})
}

// AddFunds creates a signed deposit call.
func (w *Wallet) AddFunds(nonce uint64, asset core.Asset) (*core.Call, error) {
	return w.NewCall(core.OpAddFunds, nonce, core.AddFundsPayload{Asset: asset})
}

// Withdraw creates a signed withdrawal call.
func (w *Wallet) Withdraw(nonce uint64, token string, amount uint64) (*core.Call, error) {
	return w.NewCall(core.OpWithdraw, nonce, core.WithdrawPayload{Token: token, Amount: amount})
}

// SignMatch produces the operator signature over a match definition that
// authorizes opening it through make_bet_with_signature.
func (w *Wallet) SignMatch(m *core.Match) string {
	return crypto.Sign(w.priv, []byte(m.Hash()))
}
