package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeDigest() always covers it. All prefix constants must be declared
// via this function.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated by registerPrefix() below. ComputeDigest()
// iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixAccount    = registerPrefix("acct:")
	prefixMatch      = registerPrefix("match:")
	prefixBalance    = registerPrefix("bal:")
	prefixCommission = registerPrefix("comm:")
	prefixBet        = registerPrefix("bet:")
	prefixToken      = registerPrefix("tok:")
	prefixAllowance  = registerPrefix("allow:")
	prefixSupply     = registerPrefix("tsup:")
	prefixMeta       = registerPrefix("meta:")
)

// Meta keys. New keys may only be appended to this set across schema
// versions, never repurposed, so older state stays readable.
const (
	keyRoot   = "meta:root"
	keyPaused = "meta:paused"
	keyOwner  = "meta:owner"
	keySchema = "meta:schema"
)

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with an in-memory write
// buffer, snapshot/rollback, and deterministic state-digest computation.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) del(key string) {
	delete(s.dirty, key)
	s.deleted[key] = true
}

// getUint reads a decimal-encoded counter, defaulting to 0 when absent.
func (s *StateDB) getUint(key string) (uint64, error) {
	data, err := s.get(key)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter at %q: %w", key, err)
	}
	return n, nil
}

func (s *StateDB) setUint(key string, n uint64) error {
	s.set(key, []byte(strconv.FormatUint(n, 10)))
	return nil
}

func matchKey(typeID, id uint64) string {
	return fmt.Sprintf("%s%d:%d", prefixMatch, typeID, id)
}

// ---- Accounts ----

func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	data, err := s.get(prefixAccount + address)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil // zero-value account
	}
	if err != nil {
		return nil, err
	}
	var acc core.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	s.set(prefixAccount+acc.Address, data)
	return nil
}

// ---- Matches ----

func (s *StateDB) GetMatch(typeID, id uint64) (*core.Match, error) {
	data, err := s.get(matchKey(typeID, id))
	if err != nil {
		return nil, err
	}
	var m core.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *StateDB) SetMatch(m *core.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.set(matchKey(m.TypeID, m.ID), data)
	return nil
}

func (s *StateDB) HasMatch(typeID, id uint64) (bool, error) {
	_, err := s.get(matchKey(typeID, id))
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ---- Vault balances ----

func (s *StateDB) Balance(account, token string) (uint64, error) {
	return s.getUint(prefixBalance + account + ":" + token)
}

func (s *StateDB) SetBalance(account, token string, amount uint64) error {
	return s.setUint(prefixBalance+account+":"+token, amount)
}

// ---- Commission ----

func (s *StateDB) CommissionBalance(token string) (uint64, error) {
	return s.getUint(prefixCommission + token)
}

func (s *StateDB) SetCommissionBalance(token string, amount uint64) error {
	return s.setUint(prefixCommission+token, amount)
}

// ---- Bet replay guard ----

func (s *StateDB) BetSeen(hash string) (bool, error) {
	_, err := s.get(prefixBet + hash)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *StateDB) MarkBet(hash string) error {
	s.set(prefixBet+hash, []byte{1})
	return nil
}

// ---- Root commitment, pause gate, owner ----

func (s *StateDB) Root() (string, error) {
	data, err := s.get(keyRoot)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *StateDB) SetRoot(root string) error {
	s.set(keyRoot, []byte(root))
	return nil
}

func (s *StateDB) Paused() (bool, error) {
	data, err := s.get(keyPaused)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

func (s *StateDB) SetPaused(paused bool) error {
	if paused {
		s.set(keyPaused, []byte{1})
	} else {
		s.set(keyPaused, []byte{0})
	}
	return nil
}

func (s *StateDB) Owner() (string, error) {
	data, err := s.get(keyOwner)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *StateDB) SetOwner(owner string) error {
	s.set(keyOwner, []byte(owner))
	return nil
}

// ---- External-token ledger ----

func (s *StateDB) TokenBalance(token, account string) (uint64, error) {
	return s.getUint(prefixToken + token + ":" + account)
}

func (s *StateDB) SetTokenBalance(token, account string, amount uint64) error {
	return s.setUint(prefixToken+token+":"+account, amount)
}

func (s *StateDB) Allowance(token, owner, spender string) (uint64, error) {
	return s.getUint(prefixAllowance + token + ":" + owner + ":" + spender)
}

func (s *StateDB) SetAllowance(token, owner, spender string, amount uint64) error {
	return s.setUint(prefixAllowance+token+":"+owner+":"+spender, amount)
}

func (s *StateDB) TokenSupply(token string) (uint64, error) {
	return s.getUint(prefixSupply + token)
}

func (s *StateDB) SetTokenSupply(token string, amount uint64) error {
	return s.setUint(prefixSupply+token, amount)
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so subsequent writes cannot corrupt them.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeDigest returns the deterministic hash of the complete world state.
// It merges all persisted entries (scanned from DB by the known state
// prefixes) with the current write buffer, then hashes the sorted key-value
// pairs using length-prefix encoding. It does not flush or modify state.
func (s *StateDB) ComputeDigest() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}

	// Apply the uncommitted write buffer, then drop deleted keys.
	for k, v := range s.dirty {
		merged[k] = v
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB via a
// Batch and then clears it, dropping all snapshots.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}
