package vault_test

import (
	"errors"
	"testing"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/internal/testutil"
)

func TestAddFundsMovesTokensIntoCustody(t *testing.T) {
	l := testutil.NewLedger(t)
	bettor := l.NewBettor(10_000)

	l.MustExecute(bettor, core.OpAddFunds, core.AddFundsPayload{
		Asset: core.Asset{Token: testutil.TestToken, Amount: 6_000},
	})

	bal, err := l.Engine.Balance(bettor.PubKey(), testutil.TestToken)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 6_000 {
		t.Errorf("ledger balance: got %d want 6000", bal)
	}
	walletBal, _ := l.Token.BalanceOf(bettor.PubKey())
	if walletBal != 4_000 {
		t.Errorf("wallet balance: got %d want 4000", walletBal)
	}
	custodyBal, _ := l.Token.BalanceOf(testutil.TestCustody)
	if custodyBal != 6_000 {
		t.Errorf("custody balance: got %d want 6000", custodyBal)
	}
}

func TestAddFundsRequiresAllowance(t *testing.T) {
	l := testutil.NewLedger(t)
	bettor := l.NewBettor(10_000)

	// Burn the allowance, then deposit.
	if err := l.Token.Approve(bettor.PubKey(), testutil.TestCustody, 0); err != nil {
		t.Fatal(err)
	}
	err := l.Execute(bettor, core.OpAddFunds, core.AddFundsPayload{
		Asset: core.Asset{Token: testutil.TestToken, Amount: 1_000},
	})
	if err == nil {
		t.Fatal("expected deposit without allowance to fail")
	}
	bal, _ := l.Engine.Balance(bettor.PubKey(), testutil.TestToken)
	if bal != 0 {
		t.Errorf("failed deposit credited balance: %d", bal)
	}
}

func TestAddFundsRejectsZeroAmount(t *testing.T) {
	l := testutil.NewLedger(t)
	bettor := l.NewBettor(10_000)

	err := l.Execute(bettor, core.OpAddFunds, core.AddFundsPayload{
		Asset: core.Asset{Token: testutil.TestToken, Amount: 0},
	})
	if err == nil {
		t.Fatal("expected zero deposit to fail")
	}
}

func TestWithdrawPaysOut(t *testing.T) {
	l := testutil.NewLedger(t)
	bettor := l.NewBettor(10_000)
	l.MustExecute(bettor, core.OpAddFunds, core.AddFundsPayload{
		Asset: core.Asset{Token: testutil.TestToken, Amount: 6_000},
	})

	l.MustExecute(bettor, core.OpWithdraw, core.WithdrawPayload{
		Token: testutil.TestToken, Amount: 2_500,
	})

	bal, _ := l.Engine.Balance(bettor.PubKey(), testutil.TestToken)
	if bal != 3_500 {
		t.Errorf("ledger balance: got %d want 3500", bal)
	}
	walletBal, _ := l.Token.BalanceOf(bettor.PubKey())
	if walletBal != 6_500 {
		t.Errorf("wallet balance: got %d want 6500", walletBal)
	}
}

func TestWithdrawMoreThanBalance(t *testing.T) {
	l := testutil.NewLedger(t)
	bettor := l.NewBettor(10_000)
	l.MustExecute(bettor, core.OpAddFunds, core.AddFundsPayload{
		Asset: core.Asset{Token: testutil.TestToken, Amount: 1_000},
	})

	err := l.Execute(bettor, core.OpWithdraw, core.WithdrawPayload{
		Token: testutil.TestToken, Amount: 1_001,
	})
	if !errors.Is(err, core.ErrInsufficientWithdraw) {
		t.Fatalf("expected ErrInsufficientWithdraw, got %v", err)
	}
	bal, _ := l.Engine.Balance(bettor.PubKey(), testutil.TestToken)
	if bal != 1_000 {
		t.Errorf("failed withdraw changed balance: %d", bal)
	}
}
