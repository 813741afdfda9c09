package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// Columns introduced after the original ledger_entries definition.
// Each is probed with a SELECT; when the probe fails because the column
// is absent, the guarded ALTER TABLE adds it with a default, so the
// whole step is a no-op on a current store.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"ledger_entries", "category", "ALTER TABLE ledger_entries ADD COLUMN category TEXT NOT NULL DEFAULT ''"},
	{"ledger_entries", "date_ord", "ALTER TABLE ledger_entries ADD COLUMN date_ord INTEGER"},
	{"ledger_entries", "area_id", "ALTER TABLE ledger_entries ADD COLUMN area_id INTEGER"},
	{"ledger_entries", "quantity", "ALTER TABLE ledger_entries ADD COLUMN quantity TEXT"},
	{"ledger_entries", "unit", "ALTER TABLE ledger_entries ADD COLUMN unit TEXT NOT NULL DEFAULT ''"},
}

// applyAdditiveMigrations adds the post-original columns to a legacy
// ledger table.
func applyAdditiveMigrations(db *sql.DB) error {
	for _, mig := range additiveColumns {
		probe := fmt.Sprintf("SELECT %s FROM %s LIMIT 1", mig.column, mig.table)
		if _, err := db.Exec(probe); err == nil {
			continue // already applied
		}
		if _, err := db.Exec(mig.ddl); err != nil {
			// A concurrent opener may have added the column between the
			// probe and the alter; "duplicate column" means applied.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("add column %s.%s: %w", mig.table, mig.column, err)
		}
	}
	return nil
}

// currentLedgerDDL is the target definition used when rebuilding a
// legacy ledger table. Kept in sync with schema.sql by the rebuild
// test.
const currentLedgerDDL = `
CREATE TABLE ledger_entries (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_date      TEXT NOT NULL,
    property_id     INTEGER NOT NULL REFERENCES properties(id),
    account_id      INTEGER NOT NULL REFERENCES accounts(id),
    doc_number      TEXT NOT NULL DEFAULT '',
    doc_type        TEXT NOT NULL DEFAULT '',
    memo            TEXT NOT NULL DEFAULT '',
    counterparty_id INTEGER REFERENCES counterparties(id),
    entry_kind      INTEGER NOT NULL,
    credit          TEXT NOT NULL DEFAULT '0',
    debit           TEXT NOT NULL DEFAULT '0',
    balance         TEXT NOT NULL DEFAULT '0',
    balance_sign    TEXT NOT NULL DEFAULT 'P' CHECK (balance_sign IN ('P', 'N')),
    author          TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL DEFAULT '',
    date_ord        INTEGER,
    area_id         INTEGER,
    quantity        TEXT,
    unit            TEXT NOT NULL DEFAULT ''
)`

// rebuildLedgerTable migrates a ledger table that predates the
// auto-incrementing primary key. Without AUTOINCREMENT, SQLite may
// reuse the rowid of a deleted entry, and a reused identifier silently
// overwrites an unrelated historical row on the remote side during
// synchronization.
//
// The rebuild is one atomic unit: drop dependent views, rename the
// table aside, create the current definition, copy every column common
// to both definitions (identifiers preserved exactly), drop the old
// table. Views and indexes are recreated by the later steps of Open.
// Any failure rolls back to the pre-migration state.
func rebuildLedgerTable(db *sql.DB) error {
	var ddl string
	err := db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'ledger_entries'",
	).Scan(&ddl)
	if err == sql.ErrNoRows {
		return nil // bootstrap just created it at the current DDL
	}
	if err != nil {
		return fmt.Errorf("inspect ledger table: %w", err)
	}
	if strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
		return nil // already current
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("rebuild: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	// Quiesce dependents: views referencing the table must go before
	// the rename or SQLite refuses the schema change.
	views, err := dependentViews(tx)
	if err != nil {
		return err
	}
	for _, v := range views {
		if _, err := tx.Exec("DROP VIEW IF EXISTS " + v); err != nil {
			return fmt.Errorf("rebuild: drop view %s: %w", v, err)
		}
	}

	if _, err := tx.Exec("ALTER TABLE ledger_entries RENAME TO ledger_entries_old"); err != nil {
		return fmt.Errorf("rebuild: rename aside: %w", err)
	}
	if _, err := tx.Exec(currentLedgerDDL); err != nil {
		return fmt.Errorf("rebuild: create current table: %w", err)
	}

	common, err := commonColumns(tx, "ledger_entries_old", "ledger_entries")
	if err != nil {
		return err
	}
	if len(common) == 0 {
		return fmt.Errorf("rebuild: old and new ledger tables share no columns")
	}
	cols := strings.Join(common, ", ")
	copySQL := fmt.Sprintf(
		"INSERT INTO ledger_entries (%s) SELECT %s FROM ledger_entries_old",
		cols, cols,
	)
	if _, err := tx.Exec(copySQL); err != nil {
		return fmt.Errorf("rebuild: copy rows: %w", err)
	}

	if _, err := tx.Exec("DROP TABLE ledger_entries_old"); err != nil {
		return fmt.Errorf("rebuild: drop old table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rebuild: commit: %w", err)
	}
	return nil
}

// dependentViews lists views whose body mentions the ledger table.
func dependentViews(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query(
		"SELECT name FROM sqlite_master WHERE type = 'view' AND sql LIKE '%ledger_entries%'",
	)
	if err != nil {
		return nil, fmt.Errorf("rebuild: list views: %w", err)
	}
	defer rows.Close()

	var views []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rebuild: scan view name: %w", err)
		}
		views = append(views, name)
	}
	return views, rows.Err()
}

// commonColumns returns the column names present in both tables, in
// the old table's order. The id column comes along like any other, so
// original identifier values are preserved exactly.
func commonColumns(tx *sql.Tx, oldTable, newTable string) ([]string, error) {
	oldCols, err := tableColumns(tx, oldTable)
	if err != nil {
		return nil, err
	}
	newCols, err := tableColumns(tx, newTable)
	if err != nil {
		return nil, err
	}
	newSet := make(map[string]bool, len(newCols))
	for _, c := range newCols {
		newSet[c] = true
	}
	var common []string
	for _, c := range oldCols {
		if newSet[c] {
			common = append(common, c)
		}
	}
	return common, nil
}

func tableColumns(tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// reconcileSequence guarantees the internal next-identifier counter is
// at least the current maximum entry id. The counter is raised or
// inserted, never lowered: a counter behind MAX(id) would hand out an
// identifier that collides with, and overwrites, an unrelated
// historical entry during synchronization.
func reconcileSequence(db *sql.DB) error {
	var maxID sql.NullInt64
	if err := db.QueryRow("SELECT MAX(id) FROM ledger_entries").Scan(&maxID); err != nil {
		return fmt.Errorf("sequence: max id: %w", err)
	}
	if !maxID.Valid || maxID.Int64 == 0 {
		return nil // empty table, nothing to reconcile
	}

	var seq sql.NullInt64
	err := db.QueryRow(
		"SELECT seq FROM sqlite_sequence WHERE name = 'ledger_entries'",
	).Scan(&seq)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.Exec(
			"INSERT INTO sqlite_sequence (name, seq) VALUES ('ledger_entries', ?)",
			maxID.Int64,
		)
		if err != nil {
			return fmt.Errorf("sequence: insert: %w", err)
		}
	case err != nil:
		return fmt.Errorf("sequence: read: %w", err)
	case !seq.Valid || seq.Int64 < maxID.Int64:
		_, err = db.Exec(
			"UPDATE sqlite_sequence SET seq = ? WHERE name = 'ledger_entries'",
			maxID.Int64,
		)
		if err != nil {
			return fmt.Errorf("sequence: raise: %w", err)
		}
	}
	return nil
}

// backfillDateOrd computes the ordinal date key for every entry that
// does not have one, parsing the calendar date in both legacy text
// encodings. Rows matching neither encoding keep a NULL key.
func backfillDateOrd(db *sql.DB) error {
	rows, err := db.Query("SELECT id, entry_date FROM ledger_entries WHERE date_ord IS NULL")
	if err != nil {
		return fmt.Errorf("backfill: select: %w", err)
	}

	type fix struct {
		id  int64
		ord int
	}
	var fixes []fix
	for rows.Next() {
		var (
			id   int64
			date string
		)
		if err := rows.Scan(&id, &date); err != nil {
			rows.Close()
			return fmt.Errorf("backfill: scan: %w", err)
		}
		if ord, ok := ledger.DateOrdOf(date); ok {
			fixes = append(fixes, fix{id, ord})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("backfill: iterate: %w", err)
	}
	rows.Close()

	if len(fixes) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("backfill: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, f := range fixes {
		if _, err := tx.Exec(
			"UPDATE ledger_entries SET date_ord = ? WHERE id = ?", f.ord, f.id,
		); err != nil {
			return fmt.Errorf("backfill: update id %d: %w", f.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("backfill: commit: %w", err)
	}
	return nil
}
