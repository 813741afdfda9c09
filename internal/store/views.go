package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// AccountBalances reads the account_balances view: for each account,
// the signed balance of its most recent (highest id) entry, or the
// opening balance when no entries exist.
func (s *Store) AccountBalances() ([]ledger.AccountBalance, error) {
	rows, err := s.db.Query(
		"SELECT account_id, code, balance FROM account_balances ORDER BY code",
	)
	if err != nil {
		return nil, fmt.Errorf("account balances: %w", err)
	}
	defer rows.Close()

	var out []ledger.AccountBalance
	for rows.Next() {
		var (
			b   ledger.AccountBalance
			bal float64
		)
		if err := rows.Scan(&b.AccountID, &b.Code, &bal); err != nil {
			return nil, err
		}
		b.Balance = decimal.NewFromFloat(bal)
		out = append(out, b)
	}
	return out, rows.Err()
}

// TotalBalance sums the signed balances of every account.
func (s *Store) TotalBalance() (decimal.Decimal, error) {
	var total float64
	err := s.db.QueryRow("SELECT COALESCE(SUM(balance), 0) FROM account_balances").Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total balance: %w", err)
	}
	return decimal.NewFromFloat(total), nil
}

// CategorySummary reads the category_monthly view restricted to an
// ordinal date range: credit and debit totals per category, year and
// month, ordered chronologically.
func (s *Store) CategorySummary(fromOrd, toOrd int) ([]ledger.CategorySummary, error) {
	rows, err := s.db.Query(`
		SELECT category,
		       date_ord / 10000       AS year,
		       (date_ord / 100) % 100 AS month,
		       SUM(credit),
		       SUM(debit)
		FROM ledger_entries
		WHERE date_ord BETWEEN ? AND ?
		GROUP BY category, year, month
		ORDER BY year, month, category
	`, fromOrd, toOrd)
	if err != nil {
		return nil, fmt.Errorf("category summary: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// CategorySummaryAll reads the category_monthly view over the whole
// ledger, no date restriction.
func (s *Store) CategorySummaryAll() ([]ledger.CategorySummary, error) {
	rows, err := s.db.Query(`
		SELECT category, year, month, credit, debit
		FROM category_monthly
		ORDER BY year, month, category
	`)
	if err != nil {
		return nil, fmt.Errorf("category summary: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]ledger.CategorySummary, error) {
	var out []ledger.CategorySummary
	for rows.Next() {
		var c ledger.CategorySummary
		var credit, debit float64
		if err := rows.Scan(&c.Category, &c.Year, &c.Month, &credit, &debit); err != nil {
			return nil, err
		}
		c.Credit = decimal.NewFromFloat(credit)
		c.Debit = decimal.NewFromFloat(debit)
		out = append(out, c)
	}
	return out, rows.Err()
}
