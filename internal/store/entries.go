package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// ValidationError reports malformed input. It is returned to the
// caller and never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

const entryColumns = `id, entry_date, property_id, account_id, doc_number, doc_type,
	memo, counterparty_id, entry_kind, credit, debit, balance, balance_sign,
	author, category, date_ord, area_id, quantity, unit`

// execer lets entry writes run either on the store's connection
// (auto-commit, durable before return) or inside a bulk transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// prepareEntry validates the entry and derives its ordinal date key
// from the calendar date. The credit/debit pair is deliberately not
// constrained: historical data contains rows with both sides set.
func prepareEntry(e *ledger.Entry) error {
	ord, ok := ledger.DateOrdOf(e.Date)
	if !ok {
		return &ValidationError{Field: "date", Msg: fmt.Sprintf("unrecognized date %q", e.Date)}
	}
	e.DateOrd = ord
	if e.BalanceSign == "" {
		e.BalanceSign = ledger.SignPositive
	}
	if e.BalanceSign != ledger.SignPositive && e.BalanceSign != ledger.SignNegative {
		return &ValidationError{Field: "balance_sign", Msg: string(e.BalanceSign)}
	}
	if e.Balance.IsNegative() {
		return &ValidationError{Field: "balance", Msg: "magnitude must not be negative"}
	}
	return nil
}

// CreateEntry inserts a new ledger entry and returns its identifier,
// assigned by the store's sequence. Identifiers strictly increase and
// are never reused, even after deletions.
func (s *Store) CreateEntry(e *ledger.Entry) (int64, error) {
	return createEntry(s.db, e)
}

func createEntry(x execer, e *ledger.Entry) (int64, error) {
	if err := prepareEntry(e); err != nil {
		return 0, err
	}
	res, err := x.Exec(`
		INSERT INTO ledger_entries
		(entry_date, property_id, account_id, doc_number, doc_type, memo,
		 counterparty_id, entry_kind, credit, debit, balance, balance_sign,
		 author, category, date_ord, area_id, quantity, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ledger.OrdToBR(e.DateOrd),
		e.PropertyID,
		e.AccountID,
		e.DocNumber,
		e.DocType,
		e.Memo,
		e.CounterpartyID,
		int(e.Kind),
		e.Credit.String(),
		e.Debit.String(),
		e.Balance.String(),
		string(e.BalanceSign),
		e.Author,
		e.Category,
		e.DateOrd,
		e.AreaID,
		nullDecimal(e.Quantity),
		e.Unit,
	)
	if err != nil {
		return 0, fmt.Errorf("create entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create entry: last insert id: %w", err)
	}
	e.ID = id
	return id, nil
}

// UpdateEntry rewrites every mutable column of the entry with the
// given identifier.
func (s *Store) UpdateEntry(e *ledger.Entry) error {
	return updateEntry(s.db, e)
}

func updateEntry(x execer, e *ledger.Entry) error {
	if err := prepareEntry(e); err != nil {
		return err
	}
	res, err := x.Exec(`
		UPDATE ledger_entries SET
			entry_date = ?, property_id = ?, account_id = ?, doc_number = ?,
			doc_type = ?, memo = ?, counterparty_id = ?, entry_kind = ?,
			credit = ?, debit = ?, balance = ?, balance_sign = ?, author = ?,
			category = ?, date_ord = ?, area_id = ?, quantity = ?, unit = ?
		WHERE id = ?
	`,
		ledger.OrdToBR(e.DateOrd),
		e.PropertyID,
		e.AccountID,
		e.DocNumber,
		e.DocType,
		e.Memo,
		e.CounterpartyID,
		int(e.Kind),
		e.Credit.String(),
		e.Debit.String(),
		e.Balance.String(),
		string(e.BalanceSign),
		e.Author,
		e.Category,
		e.DateOrd,
		e.AreaID,
		nullDecimal(e.Quantity),
		e.Unit,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry %d: rows affected: %w", e.ID, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplicateEntry writes an entry that already owns an identifier,
// replacing any local row with the same id wholesale (last write by
// identifier wins). Used when mirroring remote change-feed rows. The
// sequence is raised to cover the replicated id so a later local
// insert cannot collide with it.
func (s *Store) ReplicateEntry(e *ledger.Entry) error {
	if e.ID == 0 {
		return &ValidationError{Field: "id", Msg: "replicated entry must carry its identifier"}
	}
	if err := prepareEntry(e); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO ledger_entries
		(id, entry_date, property_id, account_id, doc_number, doc_type, memo,
		 counterparty_id, entry_kind, credit, debit, balance, balance_sign,
		 author, category, date_ord, area_id, quantity, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		ledger.OrdToBR(e.DateOrd),
		e.PropertyID,
		e.AccountID,
		e.DocNumber,
		e.DocType,
		e.Memo,
		e.CounterpartyID,
		int(e.Kind),
		e.Credit.String(),
		e.Debit.String(),
		e.Balance.String(),
		string(e.BalanceSign),
		e.Author,
		e.Category,
		e.DateOrd,
		e.AreaID,
		nullDecimal(e.Quantity),
		e.Unit,
	)
	if err != nil {
		return fmt.Errorf("replicate entry %d: %w", e.ID, err)
	}
	return reconcileSequence(s.db)
}

// DeleteEntry removes the entry with the given identifier. The
// identifier is not reused by later inserts.
func (s *Store) DeleteEntry(id int64) error {
	return deleteEntry(s.db, id)
}

func deleteEntry(x execer, id int64) error {
	if _, err := x.Exec("DELETE FROM ledger_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

// GetEntry fetches one entry by identifier. Returns sql.ErrNoRows when
// it does not exist.
func (s *Store) GetEntry(id int64) (ledger.Entry, error) {
	row := s.db.QueryRow(
		"SELECT "+entryColumns+" FROM ledger_entries WHERE id = ?", id,
	)
	return scanEntry(row)
}

// Filter narrows ListEntries. Zero values mean "no constraint".
type Filter struct {
	AccountID  int64
	PropertyID int64
	Kind       ledger.Kind
	Category   string
}

// ListEntries returns the entries whose ordinal date key falls in
// [fromOrd, toOrd], newest first (date_ord descending, then id
// descending). The result is a finite snapshot, re-queried each call.
func (s *Store) ListEntries(fromOrd, toOrd int, f Filter) ([]ledger.Entry, error) {
	query := "SELECT " + entryColumns + ` FROM ledger_entries
		WHERE date_ord BETWEEN ? AND ?`
	args := []any{fromOrd, toOrd}

	if f.AccountID != 0 {
		query += " AND account_id = ?"
		args = append(args, f.AccountID)
	}
	if f.PropertyID != 0 {
		query += " AND property_id = ?"
		args = append(args, f.PropertyID)
	}
	if f.Kind != 0 {
		query += " AND entry_kind = ?"
		args = append(args, int(f.Kind))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	query += " ORDER BY date_ord DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DateOrdRange returns the lowest and highest ordinal date keys
// present, or ok=false on an empty ledger.
func (s *Store) DateOrdRange() (minOrd, maxOrd int, ok bool, err error) {
	var lo, hi sql.NullInt64
	err = s.db.QueryRow(
		"SELECT MIN(date_ord), MAX(date_ord) FROM ledger_entries WHERE date_ord IS NOT NULL",
	).Scan(&lo, &hi)
	if err != nil {
		return 0, 0, false, fmt.Errorf("date range: %w", err)
	}
	if !lo.Valid {
		return 0, 0, false, nil
	}
	return int(lo.Int64), int(hi.Int64), true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (ledger.Entry, error) {
	var (
		e            ledger.Entry
		counterparty sql.NullInt64
		credit       string
		debit        string
		balance      string
		sign         string
		dateOrd      sql.NullInt64
		areaID       sql.NullInt64
		quantity     sql.NullString
		kind         int
	)
	err := r.Scan(
		&e.ID, &e.Date, &e.PropertyID, &e.AccountID, &e.DocNumber, &e.DocType,
		&e.Memo, &counterparty, &kind, &credit, &debit, &balance, &sign,
		&e.Author, &e.Category, &dateOrd, &areaID, &quantity, &e.Unit,
	)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.Kind = ledger.Kind(kind)
	e.BalanceSign = ledger.BalanceSign(sign)
	e.Date = ledger.FormatBR(e.Date)
	if counterparty.Valid {
		e.CounterpartyID = &counterparty.Int64
	}
	if dateOrd.Valid {
		e.DateOrd = int(dateOrd.Int64)
	}
	if areaID.Valid {
		e.AreaID = &areaID.Int64
	}
	if e.Credit, err = parseAmount(credit); err != nil {
		return ledger.Entry{}, fmt.Errorf("entry %d credit: %w", e.ID, err)
	}
	if e.Debit, err = parseAmount(debit); err != nil {
		return ledger.Entry{}, fmt.Errorf("entry %d debit: %w", e.ID, err)
	}
	if e.Balance, err = parseAmount(balance); err != nil {
		return ledger.Entry{}, fmt.Errorf("entry %d balance: %w", e.ID, err)
	}
	if quantity.Valid {
		q, err := parseAmount(quantity.String)
		if err != nil {
			return ledger.Entry{}, fmt.Errorf("entry %d quantity: %w", e.ID, err)
		}
		e.Quantity = &q
	}
	return e, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
