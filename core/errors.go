package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Failure reasons surfaced to callers. The message text is part of the
// client contract: client code matches on it, so do not reword without a
// migration plan for clients.
var (
	// Authorization.
	ErrNotOwner = errors.New("caller is not the owner")

	// Pause gate.
	ErrPaused    = errors.New("paused")
	ErrNotPaused = errors.New("not paused")

	// Validation.
	ErrBettorNotSender = errors.New("Bettor must be message sender")
	ErrBetTooSmall     = errors.New("Bet amount must be equal or greater than 1000")
	ErrUnknownOutcome  = errors.New("bet outcome is not offered by the match")
	ErrInvalidPayment  = errors.New("unknown payment mode")
	ErrDuplicateMatch  = errors.New("match id already registered")
	ErrBadSignature    = errors.New("match signature does not recover to the owner")

	// Lifecycle / replay state.
	ErrMatchUnavailable = errors.New("Match is not available for betting")
	ErrDuplicateBet     = errors.New("Bet has already been made")
	ErrMatchFinished    = errors.New("Match already finished")
	ErrMatchNotStarted  = errors.New("Match is not started")
	ErrSameRoot         = errors.New("New merkleRoot must not be the same as the old one")

	// Funds.
	ErrInsufficientBalance  = errors.New("Not enough funds in balance")
	ErrInsufficientWithdraw = errors.New("Insufficient token amount")

	// Empty input.
	ErrEmptyRewards = errors.New("Rewards must not be empty")
)
