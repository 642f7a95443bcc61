// Package pgaudit persists action.HistoryEntry records to PostgreSQL,
// giving the bounded in-memory ring buffer a durable counterpart for
// after-the-fact investigation once entries have aged out of it.
package pgaudit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sctg-development/photoacoustic-core/internal/action"
)

// Store writes action history entries to a single append-only table. It
// holds no in-memory state beyond the connection pool; Recent reads go
// straight through to PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL connection pool at dsn and ensures the audit
// table exists. One table with no FK relationships doesn't warrant the
// versioned migration-file machinery a multi-table schema would.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgresql: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgresql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing audit schema: %w", err)
	}

	slog.Info("postgresql action-history audit store opened")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS action_history_audit (
		id              BIGSERIAL PRIMARY KEY,
		ts              TIMESTAMPTZ NOT NULL,
		source_node_id  TEXT NOT NULL,
		peak_hz         DOUBLE PRECISION,
		ppm             DOUBLE PRECISION,
		meta            JSONB
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS action_history_audit_ts_idx
		ON action_history_audit (ts DESC)`)
	return err
}

// Record appends one entry to the audit table.
func (s *Store) Record(e action.HistoryEntry) error {
	var metaJSON []byte
	if len(e.Meta) > 0 {
		encoded, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("encoding history entry meta: %w", err)
		}
		metaJSON = encoded
	}

	_, err := s.db.Exec(
		`INSERT INTO action_history_audit (ts, source_node_id, peak_hz, ppm, meta)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.Timestamp, e.SourceNodeID, e.PeakHz, e.PPM, nullableJSON(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// RecordBatch appends multiple entries in one statement-per-row
// transaction, used by the periodic flush loop instead of one round
// trip per entry.
func (s *Store) RecordBatch(entries []action.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning audit transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO action_history_audit (ts, source_node_id, peak_hz, ppm, meta)
		 VALUES ($1, $2, $3, $4, $5)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing audit insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var metaJSON []byte
		if len(e.Meta) > 0 {
			encoded, err := json.Marshal(e.Meta)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("encoding history entry meta: %w", err)
			}
			metaJSON = encoded
		}
		if _, err := stmt.Exec(e.Timestamp, e.SourceNodeID, e.PeakHz, e.PPM, nullableJSON(metaJSON)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting history entry: %w", err)
		}
	}

	return tx.Commit()
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
