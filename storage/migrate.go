package storage

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// SchemaVersion is the storage schema this build writes. Migrations may only
// initialize new keys or re-key existing ones losslessly; they never reshape
// a stored record, so state written by any prior version stays readable.
const SchemaVersion = 2

type migration struct {
	version int
	name    string
	run     func(s *StateDB) error
}

var migrations = []migration{
	{1, "base schema", func(*StateDB) error { return nil }},
	{2, "namespace match keys by type id", migrateMatchTypeNamespace},
}

// SchemaVersionStored returns the schema version recorded in state (0 for a
// fresh database).
func (s *StateDB) SchemaVersionStored() (int, error) {
	n, err := s.getUint(keySchema)
	return int(n), err
}

// Migrate runs all pending migrations in order and records the new version.
// It commits once at the end so a crash mid-migration leaves the old version
// marker in place and the whole run repeats.
func (s *StateDB) Migrate() error {
	have, err := s.SchemaVersionStored()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if have > SchemaVersion {
		return fmt.Errorf("database schema v%d is newer than this build (v%d)", have, SchemaVersion)
	}
	if have == SchemaVersion {
		return nil
	}
	for _, m := range migrations {
		if m.version <= have {
			continue
		}
		log.Printf("[storage] migrating schema to v%d: %s", m.version, m.name)
		if err := m.run(s); err != nil {
			if revertErr := revertAll(s); revertErr != nil {
				return fmt.Errorf("migration v%d: %w (revert: %v)", m.version, err, revertErr)
			}
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
	}
	if err := s.setUint(keySchema, uint64(SchemaVersion)); err != nil {
		return err
	}
	return s.Commit()
}

func revertAll(s *StateDB) error {
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}

// migrateMatchTypeNamespace re-keys legacy "match:<id>" entries written
// before match type namespaces existed to "match:0:<id>". Record bytes are
// copied verbatim; the Match decoder already defaults TypeID to 0.
func migrateMatchTypeNamespace(s *StateDB) error {
	it := s.db.NewIterator([]byte(prefixMatch))
	defer it.Release()
	for it.Next() {
		key := string(it.Key())
		rest := strings.TrimPrefix(key, prefixMatch)
		if strings.Contains(rest, ":") {
			continue // already namespaced
		}
		if _, err := strconv.ParseUint(rest, 10, 64); err != nil {
			return fmt.Errorf("unexpected match key %q: %w", key, err)
		}
		val := make([]byte, len(it.Value()))
		copy(val, it.Value())
		s.set(prefixMatch+"0:"+rest, val)
		s.del(key)
	}
	return it.Error()
}
