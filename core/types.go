// Package core defines the wagering ledger's domain types, the signed call
// envelope that mutates it, and the State interface the storage layer
// implements.
package core

import (
	"encoding/json"

	"github.com/euphoria-gg/betledger/crypto"
)

// Outcome is an enumerated match result code. Codes are open-ended: a logic
// upgrade may introduce new results without invalidating stored matches, so
// nothing in the ledger range-checks an outcome beyond membership in the
// match's own odds table.
type Outcome uint8

// Well-known outcome codes for two-sided matches.
const (
	OutcomeHome Outcome = 0
	OutcomeAway Outcome = 1
	OutcomeDraw Outcome = 2
)

// PaymentMode selects the funding source for a bet.
type PaymentMode uint8

const (
	// BalancePayment funds the bet entirely from the bettor's ledger balance.
	BalancePayment PaymentMode = iota
	// WalletPayment pulls the full amount from the bettor's token wallet.
	WalletPayment
	// WalletBalancePayment drains the ledger balance first and pulls only
	// the shortfall from the wallet.
	WalletBalancePayment
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	return m <= WalletBalancePayment
}

// MinimumBetAmount is the smallest stake the ledger admits, in token units.
const MinimumBetAmount = 1000

// Odds pairs a supported outcome with its integer odds multiplier.
type Odds struct {
	Outcome Outcome `json:"outcome"`
	Value   uint64  `json:"value"`
}

// Match is a registered sporting match. The pair (TypeID, ID) is unique among
// all registered matches; TypeID 0 is the legacy un-namespaced range. A match
// accepts bets only while now < StartTimestamp and IsFinished is false; once
// finished it stays finished forever.
type Match struct {
	ID             uint64 `json:"id"`
	TypeID         uint64 `json:"type_id"`
	Odds           []Odds `json:"odds"`
	StartTimestamp int64  `json:"start_timestamp"` // unix seconds; the betting window closes at this instant
	IsFinished     bool   `json:"is_finished"`
}

// HasOutcome reports whether the match's odds table lists o.
func (m *Match) HasOutcome(o Outcome) bool {
	for _, odds := range m.Odds {
		if odds.Outcome == o {
			return true
		}
	}
	return false
}

// Hash returns the canonical content hash of the match definition. The
// operator signs this hash off-line to authorize opening the match through
// MakeBetWithSignature.
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (m *Match) Hash() string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// MatchRef identifies a match by its (TypeID, ID) pair.
type MatchRef struct {
	TypeID uint64 `json:"type_id"`
	ID     uint64 `json:"id"`
}

// Asset is an amount of one fungible token.
type Asset struct {
	Token  string `json:"token"`
	Amount uint64 `json:"amount"`
}

// Bet is a wager on one outcome of one match. Its identity is the hash of
// all its fields; Salt lets a bettor place otherwise-identical bets without
// colliding with the replay guard.
type Bet struct {
	Bettor      string  `json:"bettor"` // pubkey hex; must equal the call sender
	MatchID     uint64  `json:"match_id"`
	MatchTypeID uint64  `json:"match_type_id"`
	BetOn       Outcome `json:"bet_on"`
	Asset       Asset   `json:"asset"`
	Salt        uint64  `json:"salt"`
}

// Hash returns the deterministic, field-order-sensitive identity of the bet.
// Two bets with identical field values (salt included) always hash equal.
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (b *Bet) Hash() string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Reward credits a list of assets to one account. The same shape carries
// settlement rewards, cancellation refunds and out-of-band top-ups.
type Reward struct {
	Account string  `json:"account"` // pubkey hex
	Tokens  []Asset `json:"tokens"`
}

// Account holds per-sender call replay protection. Balances live in the
// vault ledger, not here.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Nonce   uint64 `json:"nonce"`
}
