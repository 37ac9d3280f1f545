package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/euphoria-gg/betledger/crypto"
)

// Op identifies the ledger operation a call performs.
type Op string

const (
	OpAddMatches           Op = "add_matches"
	OpCancelMatches        Op = "cancel_matches"
	OpMakeBet              Op = "make_bet"
	OpMakeBetWithSignature Op = "make_bet_with_signature"
	OpFinishMatch          Op = "finish_match"
	OpAddFunds             Op = "add_funds"
	OpWithdraw             Op = "withdraw"
	OpTransferCommission   Op = "transfer_commission"
	OpAddRewards           Op = "add_rewards"
	OpPause                Op = "pause"
	OpUnpause              Op = "unpause"
)

// Call is the atomic unit of work against the ledger: every mutating entry
// point is a signed Call, executed to completion or fully reverted.
// From holds the sender's full hex-encoded ed25519 public key.
// Signature covers all fields except Signature itself.
type Call struct {
	ID        string          `json:"id"`
	Op        Op              `json:"op"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields covered by the signature.
type signingBody struct {
	Op        Op              `json:"op"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the call (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (c *Call) Hash() string {
	body := signingBody{
		Op:        c.Op,
		From:      c.From,
		Nonce:     c.Nonce,
		Timestamp: c.Timestamp,
		Payload:   c.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (c *Call) Sign(priv crypto.PrivateKey) {
	hash := c.Hash()
	c.Signature = crypto.Sign(priv, []byte(hash))
	c.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (c *Call) Verify() error {
	if c.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(c.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(c.Hash()), c.Signature)
}

// NewCall creates an unsigned call with the current timestamp.
func NewCall(op Op, from string, nonce uint64, payload any) (*Call, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Call{
		Op:        op,
		From:      from,
		Nonce:     nonce,
		Timestamp: time.Now().Unix(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// AddMatchesPayload registers a batch of matches. The whole call fails if any
// single match is invalid.
type AddMatchesPayload struct {
	Matches []Match `json:"matches"`
}

// CancelMatchesPayload closes the named matches' betting windows immediately
// and credits the supplied refunds to vault balances.
type CancelMatchesPayload struct {
	Matches []MatchRef `json:"matches"`
	Refunds []Reward   `json:"refunds"`
}

// MakeBetPayload places a bet funded according to Mode.
type MakeBetPayload struct {
	Bet  Bet         `json:"bet"`
	Mode PaymentMode `json:"mode"`
}

// MakeBetWithSignaturePayload atomically opens an operator-signed match and
// bets into it.
type MakeBetWithSignaturePayload struct {
	Bet            Bet         `json:"bet"`
	Mode           PaymentMode `json:"mode"`
	NewMatch       Match       `json:"new_match"`
	MatchSignature string      `json:"match_signature"` // operator's signature over NewMatch.Hash()
}

// FinishMatchPayload resolves a match and applies the externally computed
// reward and commission lists.
type FinishMatchPayload struct {
	Match       MatchRef `json:"match"`
	Result      Outcome  `json:"result"`
	NewRoot     string   `json:"new_root"`
	Rewards     []Reward `json:"rewards"`
	Commissions []Asset  `json:"commissions"`
}

// AddFundsPayload deposits tokens into the sender's vault balance.
type AddFundsPayload struct {
	Asset Asset `json:"asset"`
}

// WithdrawPayload pays out part of the sender's vault balance.
type WithdrawPayload struct {
	Token  string `json:"token"`
	Amount uint64 `json:"amount"`
}

// TransferCommissionPayload pays accrued commission out to a recipient.
type TransferCommissionPayload struct {
	Recipient string  `json:"recipient"`
	Assets    []Asset `json:"assets"`
}

// AddRewardsPayload credits rewards funded from the operator's own wallet,
// outside any settlement.
type AddRewardsPayload struct {
	Rewards []Reward `json:"rewards"`
}
