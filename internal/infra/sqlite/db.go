// Package sqlite provides the persistent stores backing the swap engine:
// the item catalog, the swap ledger, and the members table that carries
// each member's points balance.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and implements the store interfaces the
// application services are built against.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database inside dir and applies the schema.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, "rewear.db")
	// WAL keeps readers off the writer's back; busy_timeout covers
	// writer-writer contention under concurrent requests. Transactions
	// begin IMMEDIATE: a deferred read snapshot cannot be upgraded to a
	// write lock once another writer commits, and busy_timeout does not
	// retry that, so check-then-insert transactions would fail with
	// SQLITE_BUSY instead of waiting their turn.
	dsn := "file:" + path + "?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// migrate applies the schema. Each string is a single SQL statement
// (SQLite executes one at a time).
func (d *DB) migrate() error {
	for _, stmt := range migrations() {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func migrations() []string {
	return []string{
		// Members, with the points sub-ledger inline. Points only ever go up
		// and are mutated with an additive UPDATE, never read-modify-write.
		`CREATE TABLE IF NOT EXISTS members (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			points     INTEGER NOT NULL DEFAULT 0,
			is_admin   INTEGER NOT NULL DEFAULT 0,
			street     TEXT NOT NULL DEFAULT '',
			city       TEXT NOT NULL DEFAULT '',
			state      TEXT NOT NULL DEFAULT '',
			zip_code   TEXT NOT NULL DEFAULT '',
			country    TEXT NOT NULL DEFAULT 'India',
			phone      TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Item catalog
		`CREATE TABLE IF NOT EXISTS items (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			size        TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			point_value INTEGER NOT NULL DEFAULT 10,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)`,

		// Swap ledger. courier_json/shipping_json hold the chosen quote and
		// both parties' addresses; the tracking id gets its own column so
		// MarkShipped stays a single conditional UPDATE.
		`CREATE TABLE IF NOT EXISTS swap_requests (
			id                TEXT PRIMARY KEY,
			requester_id      TEXT NOT NULL,
			requested_item_id TEXT NOT NULL,
			offered_item_id   TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'pending',
			message           TEXT NOT NULL DEFAULT '',
			courier_json      TEXT,
			shipping_json     TEXT,
			tracking_id       TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_swaps_requester ON swap_requests(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_swaps_requested_item ON swap_requests(requested_item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_swaps_status ON swap_requests(status)`,
	}
}
