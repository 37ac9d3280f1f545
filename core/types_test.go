package core

import "testing"

func sampleBet() Bet {
	return Bet{
		Bettor:      "aabb",
		MatchID:     7,
		MatchTypeID: 1000,
		BetOn:       OutcomeHome,
		Asset:       Asset{Token: "tok", Amount: 5000},
		Salt:        42,
	}
}

func TestBetHashDeterministic(t *testing.T) {
	a := sampleBet()
	b := sampleBet()
	if a.Hash() != b.Hash() {
		t.Fatalf("identical bets hash differently: %s vs %s", a.Hash(), b.Hash())
	}
}

func TestBetHashChangesPerField(t *testing.T) {
	base := sampleBet()
	variants := map[string]Bet{}

	v := sampleBet()
	v.Bettor = "ccdd"
	variants["bettor"] = v

	v = sampleBet()
	v.MatchID = 8
	variants["match id"] = v

	v = sampleBet()
	v.MatchTypeID = 2000
	variants["match type id"] = v

	v = sampleBet()
	v.BetOn = OutcomeAway
	variants["outcome"] = v

	v = sampleBet()
	v.Asset.Amount = 6000
	variants["amount"] = v

	v = sampleBet()
	v.Salt = 43
	variants["salt"] = v

	for name, variant := range variants {
		if variant.Hash() == base.Hash() {
			t.Errorf("changing %s did not change the bet hash", name)
		}
	}
}

func TestMatchHasOutcome(t *testing.T) {
	m := Match{
		ID:   1,
		Odds: []Odds{{Outcome: OutcomeHome, Value: 2}, {Outcome: OutcomeDraw, Value: 3}},
	}
	if !m.HasOutcome(OutcomeHome) {
		t.Error("expected home outcome to be offered")
	}
	if m.HasOutcome(OutcomeAway) {
		t.Error("away outcome should not be offered")
	}
}

func TestPaymentModeValid(t *testing.T) {
	for _, mode := range []PaymentMode{BalancePayment, WalletPayment, WalletBalancePayment} {
		if !mode.Valid() {
			t.Errorf("mode %d should be valid", mode)
		}
	}
	if PaymentMode(3).Valid() {
		t.Error("mode 3 should be invalid")
	}
}
