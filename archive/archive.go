// Package archive mirrors the ledger's event stream into Postgres for
// reporting and reconciliation. The durable store stays on the embedded
// key-value database; the archive is a best-effort secondary sink and never
// blocks call execution.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/euphoria-gg/betledger/events"
)

// Archive writes executed calls, admitted bets and settlements to Postgres.
type Archive struct {
	db *sql.DB
}

// Open connects to the Postgres archive at databaseURL.
func Open(databaseURL string) (*Archive, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Archive{db: db}, nil
}

// Migrate creates the archive tables if they do not exist.
func (a *Archive) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id BIGSERIAL PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			call_id VARCHAR(128),
			emitted_at BIGINT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_type ON ledger_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_call_id ON ledger_events(call_id)`,

		`CREATE TABLE IF NOT EXISTS bets (
			id BIGSERIAL PRIMARY KEY,
			bet_hash VARCHAR(64) UNIQUE NOT NULL,
			bettor VARCHAR(128) NOT NULL,
			match_type_id BIGINT NOT NULL,
			match_id BIGINT NOT NULL,
			bet_on SMALLINT NOT NULL,
			token VARCHAR(128) NOT NULL,
			amount BIGINT NOT NULL,
			call_id VARCHAR(128),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_bettor ON bets(bettor)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_match ON bets(match_type_id, match_id)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id BIGSERIAL PRIMARY KEY,
			match_type_id BIGINT NOT NULL,
			match_id BIGINT NOT NULL,
			result SMALLINT NOT NULL,
			call_id VARCHAR(128),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_match ON settlements(match_type_id, match_id)`,
	}
	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("archive migration failed: %w", err)
		}
	}
	return nil
}

// Attach subscribes the archive to every event on the emitter.
func (a *Archive) Attach(emitter *events.Emitter) {
	emitter.SubscribeAll(a.record)
	emitter.Subscribe(events.EventBet, a.recordBet)
	emitter.Subscribe(events.EventBetV2, a.recordBet)
	emitter.Subscribe(events.EventMatchFinished, a.recordSettlement)
}

func (a *Archive) record(ev events.Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		log.Printf("[archive] marshal event %s: %v", ev.ID, err)
		return
	}
	_, err = a.db.Exec(
		`INSERT INTO ledger_events (event_id, event_type, call_id, emitted_at, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, string(ev.Type), ev.CallID, ev.Time, payload,
	)
	if err != nil {
		log.Printf("[archive] insert event %s: %v", ev.ID, err)
	}
}

func (a *Archive) recordBet(ev events.Event) {
	raw, err := json.Marshal(ev.Data["bet"])
	if err != nil {
		return
	}
	var bet struct {
		Bettor      string `json:"bettor"`
		MatchID     uint64 `json:"match_id"`
		MatchTypeID uint64 `json:"match_type_id"`
		BetOn       uint8  `json:"bet_on"`
		Asset       struct {
			Token  string `json:"token"`
			Amount uint64 `json:"amount"`
		} `json:"asset"`
	}
	if err := json.Unmarshal(raw, &bet); err != nil {
		return
	}
	hash, _ := ev.Data["bet_hash"].(string)
	_, err = a.db.Exec(
		`INSERT INTO bets (bet_hash, bettor, match_type_id, match_id, bet_on, token, amount, call_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (bet_hash) DO NOTHING`,
		hash, bet.Bettor, bet.MatchTypeID, bet.MatchID, bet.BetOn,
		bet.Asset.Token, bet.Asset.Amount, ev.CallID,
	)
	if err != nil {
		log.Printf("[archive] insert bet %s: %v", hash, err)
	}
}

func (a *Archive) recordSettlement(ev events.Event) {
	raw, err := json.Marshal(ev.Data["match"])
	if err != nil {
		return
	}
	var ref struct {
		TypeID uint64 `json:"type_id"`
		ID     uint64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return
	}
	var result uint8
	if rawResult, err := json.Marshal(ev.Data["result"]); err == nil {
		_ = json.Unmarshal(rawResult, &result)
	}
	_, err = a.db.Exec(
		`INSERT INTO settlements (match_type_id, match_id, result, call_id)
		 VALUES ($1, $2, $3, $4)`,
		ref.TypeID, ref.ID, result, ev.CallID,
	)
	if err != nil {
		log.Printf("[archive] insert settlement (%d, %d): %v", ref.TypeID, ref.ID, err)
	}
}

// Close releases the database connection pool.
func (a *Archive) Close() error {
	return a.db.Close()
}
