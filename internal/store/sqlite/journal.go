// Package sqlite persists emitted signals to a local journal so alert
// history survives restarts and can be audited after the fact.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crossbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// JournalConfig configures the signal journal.
type JournalConfig struct {
	DBPath string // e.g. "data/signals.db"
}

// Journal is a single-writer SQLite store for emitted signals.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal database in WAL mode.
func NewJournal(cfg JournalConfig) (*Journal, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] signal journal opened at %s", cfg.DBPath)
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			timeframe   TEXT    NOT NULL,
			direction   TEXT    NOT NULL,
			cross_index INTEGER NOT NULL,
			price       REAL    NOT NULL,
			ema200      REAL    NOT NULL,
			features    TEXT    NOT NULL,
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals (symbol, timeframe);
		CREATE INDEX IF NOT EXISTS idx_signals_created ON signals (created_at);
	`)
	return err
}

// Record appends one emitted signal to the journal.
func (j *Journal) Record(ctx context.Context, sig *model.Signal) error {
	features, err := json.Marshal(sig.Features)
	if err != nil {
		return fmt.Errorf("sqlite marshal features: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO signals (symbol, timeframe, direction, cross_index, price, ema200, features, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sig.Symbol, sig.Timeframe, string(sig.Cross.Direction), sig.Cross.Index,
		sig.Price, sig.EMA200, string(features), sig.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// CountSince returns how many signals were journaled at or after the
// given time.
func (j *Journal) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signals WHERE created_at >= ?`, since.Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite count signals: %w", err)
	}
	return n, nil
}

// Entry is one journaled signal row.
type Entry struct {
	ID         int64
	Symbol     string
	Timeframe  string
	Direction  string
	CrossIndex int
	Price      float64
	EMA200     float64
	Features   model.Features
	CreatedAt  time.Time
}

// Recent returns the newest limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, symbol, timeframe, direction, cross_index, price, ema200, features, created_at
		FROM signals ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var features string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Timeframe, &e.Direction,
			&e.CrossIndex, &e.Price, &e.EMA200, &features, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
			return nil, fmt.Errorf("sqlite decode features: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DB exposes the underlying handle for liveness probes.
func (j *Journal) DB() *sql.DB {
	return j.db
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
