package engine

import "github.com/euphoria-gg/betledger/core"

// Read views. They serialize with Execute so they always observe fully
// committed call effects, never a call in progress.

// MatchData returns the stored match for (typeID, id).
func (e *Engine) MatchData(typeID, id uint64) (*core.Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.GetMatch(typeID, id)
}

// Balance returns the vault balance the ledger owes account in token units.
func (e *Engine) Balance(account, tok string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Balance(account, tok)
}

// CommissionBalance returns the accrued commission for a token.
func (e *Engine) CommissionBalance(tok string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CommissionBalance(tok)
}

// MerkleRoot returns the current settlement root commitment.
func (e *Engine) MerkleRoot() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Root()
}

// Paused reports whether the pause gate is closed.
func (e *Engine) Paused() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Paused()
}

// Owner returns the owner principal's pubkey hex.
func (e *Engine) Owner() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Owner()
}

// AccountNonce returns the next expected call nonce for address.
func (e *Engine) AccountNonce(address string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc, err := e.state.GetAccount(address)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// BetSeen reports whether a bet hash has already been admitted.
func (e *Engine) BetSeen(hash string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.BetSeen(hash)
}
