package core

// State is the full ledger state interface. Implementations must be
// snapshot-able so the engine can roll back failed calls.
type State interface {
	// Accounts (call replay protection)
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Matches, keyed by (TypeID, ID)
	GetMatch(typeID, id uint64) (*Match, error)
	SetMatch(m *Match) error
	HasMatch(typeID, id uint64) (bool, error)

	// Vault balances: funds the ledger owes each (account, token) pair.
	// Never negative; absent means zero.
	Balance(account, token string) (uint64, error)
	SetBalance(account, token string, amount uint64) error

	// Commission accumulator per token, separate from any bettor balance.
	CommissionBalance(token string) (uint64, error)
	SetCommissionBalance(token string, amount uint64) error

	// Bet replay guard. A marked hash stays marked forever.
	BetSeen(hash string) (bool, error)
	MarkBet(hash string) error

	// Root commitment of the latest settlement batch.
	Root() (string, error)
	SetRoot(root string) error

	// Pause gate and owner principal.
	Paused() (bool, error)
	SetPaused(paused bool) error
	Owner() (string, error)
	SetOwner(owner string) error

	// External-token ledger: balances, allowances and total supply of
	// tokens hosted in ledger state, so token movement reverts together
	// with the call that triggered it.
	TokenBalance(token, account string) (uint64, error)
	SetTokenBalance(token, account string, amount uint64) error
	Allowance(token, owner, spender string) (uint64, error)
	SetAllowance(token, owner, spender string, amount uint64) error
	TokenSupply(token string) (uint64, error)
	SetTokenSupply(token string, amount uint64) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeDigest returns the deterministic hash of the full world state
	// from the current write buffer without flushing. Not to be confused
	// with the settlement root commitment, which is a stored field.
	ComputeDigest() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
