package store

import (
	"database/sql"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// createLegacyStore builds a database file the way the first release
// laid it out: no AUTOINCREMENT on the ledger table, none of the later
// columns, slimmer dimension tables. Two entries with an id gap and one
// date in each legacy text encoding.
func createLegacyStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE properties (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE accounts (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			code            TEXT NOT NULL UNIQUE,
			opening_balance TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE TABLE ledger_entries (
			id              INTEGER PRIMARY KEY,
			entry_date      TEXT NOT NULL,
			property_id     INTEGER NOT NULL,
			account_id      INTEGER NOT NULL,
			doc_number      TEXT NOT NULL DEFAULT '',
			doc_type        TEXT NOT NULL DEFAULT '',
			memo            TEXT NOT NULL DEFAULT '',
			counterparty_id INTEGER,
			entry_kind      INTEGER NOT NULL,
			credit          TEXT NOT NULL DEFAULT '0',
			debit           TEXT NOT NULL DEFAULT '0',
			balance         TEXT NOT NULL DEFAULT '0',
			balance_sign    TEXT NOT NULL DEFAULT 'P',
			author          TEXT NOT NULL DEFAULT ''
		)`,
		`INSERT INTO properties (id, code, name) VALUES (1, '001', 'Fazenda Velha')`,
		`INSERT INTO accounts (id, code) VALUES (1, '001')`,
		`INSERT INTO ledger_entries
			(id, entry_date, property_id, account_id, memo, entry_kind, credit, balance, balance_sign, author)
			VALUES (3, '31/12/2023', 1, 1, 'colheita', 1, '500', '500', 'P', 'legacy')`,
		`INSERT INTO ledger_entries
			(id, entry_date, property_id, account_id, memo, entry_kind, debit, balance, balance_sign, author)
			VALUES (7, '2024-01-05', 1, 1, 'adubo', 2, '200', '300', 'P', 'legacy')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("legacy fixture %q: %v", stmt[:30], err)
		}
	}
	return path
}

func TestOpen_RebuildsLegacyLedgerTable(t *testing.T) {
	path := createLegacyStore(t)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on legacy store failed: %v", err)
	}
	defer s.Close()

	var ddl string
	err = s.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'ledger_entries'",
	).Scan(&ddl)
	if err != nil {
		t.Fatalf("inspect rebuilt table: %v", err)
	}
	if !strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
		t.Error("rebuilt table should use AUTOINCREMENT")
	}

	// Identifiers and row data survive the rebuild exactly.
	e3, err := s.GetEntry(3)
	if err != nil {
		t.Fatalf("GetEntry(3) after rebuild: %v", err)
	}
	if e3.Memo != "colheita" {
		t.Errorf("entry 3 memo = %q, want colheita", e3.Memo)
	}
	e7, err := s.GetEntry(7)
	if err != nil {
		t.Fatalf("GetEntry(7) after rebuild: %v", err)
	}
	if e7.Memo != "adubo" {
		t.Errorf("entry 7 memo = %q, want adubo", e7.Memo)
	}

	// Both legacy date encodings got an ordinal key.
	if e3.DateOrd != 20231231 {
		t.Errorf("entry 3 date_ord = %d, want 20231231", e3.DateOrd)
	}
	if e7.DateOrd != 20240105 {
		t.Errorf("entry 7 date_ord = %d, want 20240105", e7.DateOrd)
	}
	if e7.Date != "05/01/2024" {
		t.Errorf("entry 7 date = %q, want 05/01/2024", e7.Date)
	}
}

func TestOpen_ReconcilesSequenceAfterRebuild(t *testing.T) {
	path := createLegacyStore(t)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on legacy store failed: %v", err)
	}
	defer s.Close()

	// The next insert must land above the highest migrated id, not in
	// the gap below it.
	id, err := s.CreateEntry(newTestEntry(1, 1, "10/01/2024"))
	if err != nil {
		t.Fatalf("CreateEntry() after rebuild: %v", err)
	}
	if id <= 7 {
		t.Errorf("new entry id = %d, want > 7", id)
	}
}

func TestOpen_LegacyStoreIsIdempotent(t *testing.T) {
	path := createLegacyStore(t)

	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM ledger_entries").Scan(&count); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 2 {
		t.Errorf("entry count after repeated opens = %d, want 2", count)
	}
}

// The rebuild DDL must define exactly the columns schema.sql defines,
// or a rebuilt store and a fresh store would diverge.
func TestRebuildDDL_MatchesSchema(t *testing.T) {
	fresh := createTestStore(t)

	scratch, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "scratch.db"))
	if err != nil {
		t.Fatalf("open scratch db: %v", err)
	}
	defer scratch.Close()
	if _, err := scratch.Exec(currentLedgerDDL); err != nil {
		t.Fatalf("exec rebuild DDL: %v", err)
	}

	freshCols := ledgerColumns(t, fresh.db)
	rebuiltCols := ledgerColumns(t, scratch)
	if !reflect.DeepEqual(freshCols, rebuiltCols) {
		t.Errorf("rebuild DDL columns %v\nwant schema.sql columns %v", rebuiltCols, freshCols)
	}
}

func ledgerColumns(t *testing.T, db *sql.DB) []string {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	cols, err := tableColumns(tx, "ledger_entries")
	if err != nil {
		t.Fatalf("tableColumns: %v", err)
	}
	return cols
}
