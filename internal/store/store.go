package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

//go:embed views.sql
var viewsSQL string

// MigrationError is fatal: the store could not be brought to the
// current schema and the caller must not proceed with it.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration step %s: %v", e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// IsMigrationError reports whether err is (or wraps) a MigrationError.
func IsMigrationError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}

// Store provides durable storage for the producer's cash book.
// Uses SQLite with WAL mode; every successful write is persisted
// before the call returns.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store file at the given path and brings it
// to the current schema. It runs, in order:
//
//  1. create-if-absent of all tables
//  2. additive column migrations (probe, then guarded ALTER TABLE)
//  3. structural rebuild of ledger_entries to an auto-incrementing
//     primary key when the existing table predates that guarantee
//  4. identifier-sequence reconciliation (sqlite_sequence >= MAX(id))
//  5. ordinal-date backfill for rows with a NULL date_ord
//  6. view and index creation for all query paths
//
// Every step is a no-op when already applied, so Open is idempotent.
// Any failure is returned as a *MigrationError and the store handle is
// not usable.
func Open(path string) (*Store, error) {
	// _txlock=immediate makes every transaction claim the write lock
	// at BEGIN, which WithBulkTransaction relies on for its exclusive
	// scope.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &MigrationError{Step: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &MigrationError{Step: "open", Err: err}
	}

	// SQLite only supports one writer at a time; a single connection
	// avoids SQLITE_BUSY between our own statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, &MigrationError{Step: "pragmas", Err: err}
	}

	steps := []struct {
		name string
		run  func(*sql.DB) error
	}{
		{"bootstrap", bootstrapTables},
		{"additive", applyAdditiveMigrations},
		{"rebuild", rebuildLedgerTable},
		{"sequence", reconcileSequence},
		{"backfill", backfillDateOrd},
		{"views", ensureViews},
		{"indexes", ensureIndexes},
	}
	for _, step := range steps {
		if err := step.run(db); err != nil {
			db.Close()
			return nil, &MigrationError{Step: step.name, Err: err}
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// bootstrapTables creates every table at the current schema.
// IF NOT EXISTS throughout, so an existing (possibly legacy) table is
// left alone for the later migration steps to inspect.
func bootstrapTables(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}

// ensureViews creates the derived views. Runs after the additive and
// structural steps so the view bodies can reference columns a legacy
// table gained during this same Open.
func ensureViews(db *sql.DB) error {
	if _, err := db.Exec(viewsSQL); err != nil {
		return fmt.Errorf("create views: %w", err)
	}
	return nil
}

// ensureIndexes creates the indexes backing every LedgerStore query
// path. All IF NOT EXISTS.
func ensureIndexes(db *sql.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_entries_date_ord ON ledger_entries(date_ord)",
		"CREATE INDEX IF NOT EXISTS idx_entries_account ON ledger_entries(account_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_entries_property ON ledger_entries(property_id)",
		"CREATE INDEX IF NOT EXISTS idx_entries_counterparty ON ledger_entries(counterparty_id)",
		"CREATE INDEX IF NOT EXISTS idx_entries_category ON ledger_entries(category)",
		"CREATE INDEX IF NOT EXISTS idx_counterparties_name ON counterparties(name)",
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
