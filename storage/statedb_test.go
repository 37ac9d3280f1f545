package storage

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/euphoria-gg/betledger/core"
)

// memDB is a minimal in-memory DB for this package's tests. The shared
// harness in internal/testutil cannot be used here without an import cycle.
type memDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemDB() *memDB {
	return &memDB{data: make(map[string][]byte)}
}

func (m *memDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return v, nil
}

func (m *memDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = value
	return nil
}

func (m *memDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memDB) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := string(prefix)
	var pairs [][2][]byte
	for k, v := range m.data {
		if strings.HasPrefix(k, p) {
			cp := make([]byte, len(v))
			copy(cp, v)
			pairs = append(pairs, [2][]byte{[]byte(k), cp})
		}
	}
	return &memIter{pairs: pairs, idx: -1}
}

func (m *memDB) NewBatch() Batch { return &memBatch{db: m} }
func (m *memDB) Close() error    { return nil }

type memBatch struct {
	db  *memDB
	ops map[string][]byte
}

func (b *memBatch) Set(key, value []byte) {
	if b.ops == nil {
		b.ops = make(map[string][]byte)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b.ops[string(key)] = cp
}

func (b *memBatch) Delete(key []byte) {
	if b.ops == nil {
		b.ops = make(map[string][]byte)
	}
	b.ops[string(key)] = nil
}

func (b *memBatch) Reset() { b.ops = nil }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for k, v := range b.ops {
		if v == nil {
			delete(b.db.data, k)
		} else {
			b.db.data[k] = v
		}
	}
	return nil
}

type memIter struct {
	pairs [][2][]byte
	idx   int
}

func (it *memIter) Next() bool    { it.idx++; return it.idx < len(it.pairs) }
func (it *memIter) Key() []byte   { return it.pairs[it.idx][0] }
func (it *memIter) Value() []byte { return it.pairs[it.idx][1] }
func (it *memIter) Release()      {}
func (it *memIter) Error() error  { return nil }

func TestSnapshotRevert(t *testing.T) {
	s := NewStateDB(newMemDB())

	if err := s.SetBalance("alice", "tok", 100); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetBalance("alice", "tok", 999); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkBet("deadbeef"); err != nil {
		t.Fatal(err)
	}

	if err := s.RevertToSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	bal, err := s.Balance("alice", "tok")
	if err != nil {
		t.Fatal(err)
	}
	if bal != 100 {
		t.Errorf("balance after revert: got %d want 100", bal)
	}
	seen, err := s.BetSeen("deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Error("bet mark survived revert")
	}
}

func TestCommitPersists(t *testing.T) {
	db := newMemDB()
	s := NewStateDB(db)

	if err := s.SetMatch(&core.Match{ID: 5, TypeID: 1000, Odds: []core.Odds{{Outcome: core.OutcomeHome, Value: 2}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRoot("root-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	// Fresh StateDB over the same DB must see committed data.
	s2 := NewStateDB(db)
	m, err := s2.GetMatch(1000, 5)
	if err != nil {
		t.Fatalf("get match after commit: %v", err)
	}
	if m.ID != 5 || m.TypeID != 1000 {
		t.Errorf("match mismatch: %+v", m)
	}
	root, err := s2.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root != "root-1" {
		t.Errorf("root: got %q want %q", root, "root-1")
	}
}

func TestGetMatchNotFound(t *testing.T) {
	s := NewStateDB(newMemDB())
	if _, err := s.GetMatch(1, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	exists, err := s.HasMatch(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("HasMatch reported a match that was never stored")
	}
}

func TestGetAccountDefaultsToZero(t *testing.T) {
	s := NewStateDB(newMemDB())
	acc, err := s.GetAccount("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Nonce != 0 || acc.Address != "nobody" {
		t.Errorf("unexpected zero account: %+v", acc)
	}
}

func TestComputeDigestTracksState(t *testing.T) {
	s := NewStateDB(newMemDB())
	empty := s.ComputeDigest()

	if err := s.SetBalance("alice", "tok", 50); err != nil {
		t.Fatal(err)
	}
	withBalance := s.ComputeDigest()
	if withBalance == empty {
		t.Error("digest unchanged after write")
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if s.ComputeDigest() != withBalance {
		t.Error("digest changed across commit with identical logical state")
	}
}

func TestMigrateNamespacesLegacyMatchKeys(t *testing.T) {
	db := newMemDB()

	// Simulate a pre-namespace database: match stored under "match:<id>".
	legacy := NewStateDB(db)
	if err := legacy.SetMatch(&core.Match{ID: 9, Odds: []core.Odds{{Outcome: core.OutcomeHome, Value: 2}}}); err != nil {
		t.Fatal(err)
	}
	if err := legacy.Commit(); err != nil {
		t.Fatal(err)
	}
	raw := db.data["match:0:9"]
	delete(db.data, "match:0:9")
	db.data["match:9"] = raw

	s := NewStateDB(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m, err := s.GetMatch(0, 9)
	if err != nil {
		t.Fatalf("match not readable after migration: %v", err)
	}
	if m.ID != 9 {
		t.Errorf("migrated match id: got %d want 9", m.ID)
	}
	if _, ok := db.data["match:9"]; ok {
		t.Error("legacy key survived migration")
	}

	have, err := s.SchemaVersionStored()
	if err != nil {
		t.Fatal(err)
	}
	if have != SchemaVersion {
		t.Errorf("schema version: got %d want %d", have, SchemaVersion)
	}

	// Second run is a no-op.
	if err := s.Migrate(); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
}
