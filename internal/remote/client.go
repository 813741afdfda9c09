package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Client is the remote session. It is owned by the sync bridge: the
// bridge serializes every call through its single worker, so Client
// needs no locking of its own.
type Client struct {
	db *sql.DB
}

// Dial opens the remote session and verifies connectivity.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("dial remote: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("dial remote: %w", err)
	}
	return &Client{db: db}, nil
}

// Close tears down the remote session.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Row is the remote ledger row shape: references stored by identifier,
// display names resolved separately against the two reference tables.
type Row struct {
	ID             int64
	Date           string
	PropertyID     int64
	AccountID      int64
	DocNumber      sql.NullString
	DocType        sql.NullString
	Memo           string
	CounterpartyID sql.NullInt64
	Kind           int
	Credit         decimal.Decimal
	Debit          decimal.Decimal
	Balance        decimal.Decimal
	BalanceSign    string
	Author         string
	Category       sql.NullString
	DateOrd        sql.NullInt64
}

const remoteColumns = `id, entry_date, property_id, account_id, doc_number, doc_type,
	memo, counterparty_id, entry_kind, credit, debit, balance, balance_sign,
	author, category, date_ord`

// FetchEntries returns the remote entries whose ordinal date key falls
// in [fromOrd, toOrd], newest first.
func (c *Client) FetchEntries(ctx context.Context, fromOrd, toOrd int) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+remoteColumns+`
		FROM ledger_entries
		WHERE date_ord BETWEEN $1 AND $2
		ORDER BY date_ord DESC, id DESC
	`, fromOrd, toOrd)
	if err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.ID, &r.Date, &r.PropertyID, &r.AccountID, &r.DocNumber, &r.DocType,
			&r.Memo, &r.CounterpartyID, &r.Kind, &r.Credit, &r.Debit, &r.Balance,
			&r.BalanceSign, &r.Author, &r.Category, &r.DateOrd,
		); err != nil {
			return nil, fmt.Errorf("fetch entries: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertEntry writes a remote row keyed by identifier. A collision on
// id overwrites the whole row; fields are never merged one by one,
// which keeps last-write-wins semantics simple.
func (c *Client) UpsertEntry(ctx context.Context, r Row) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(id, entry_date, property_id, account_id, doc_number, doc_type, memo,
		 counterparty_id, entry_kind, credit, debit, balance, balance_sign,
		 author, category, date_ord)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			entry_date = EXCLUDED.entry_date,
			property_id = EXCLUDED.property_id,
			account_id = EXCLUDED.account_id,
			doc_number = EXCLUDED.doc_number,
			doc_type = EXCLUDED.doc_type,
			memo = EXCLUDED.memo,
			counterparty_id = EXCLUDED.counterparty_id,
			entry_kind = EXCLUDED.entry_kind,
			credit = EXCLUDED.credit,
			debit = EXCLUDED.debit,
			balance = EXCLUDED.balance,
			balance_sign = EXCLUDED.balance_sign,
			author = EXCLUDED.author,
			category = EXCLUDED.category,
			date_ord = EXCLUDED.date_ord
	`,
		r.ID, r.Date, r.PropertyID, r.AccountID, r.DocNumber, r.DocType, r.Memo,
		r.CounterpartyID, r.Kind, r.Credit, r.Debit, r.Balance, r.BalanceSign,
		r.Author, r.Category, r.DateOrd,
	)
	if err != nil {
		return fmt.Errorf("upsert entry %d: %w", r.ID, err)
	}
	return nil
}

// DeleteEntry removes a remote row by identifier.
func (c *Client) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM ledger_entries WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

// PropertyNames resolves display names for a set of property ids in
// one batch query. Callers build the lookup map once per result set,
// never one query per row.
func (c *Client) PropertyNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return c.namesByID(ctx, "properties", "name", ids)
}

// CounterpartyNames resolves display names for a set of counterparty
// ids in one batch query.
func (c *Client) CounterpartyNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return c.namesByID(ctx, "counterparties", "name", ids)
}

func (c *Client) namesByID(ctx context.Context, table, column string, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ANY($1)", column, table)
	rows, err := c.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("names from %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("names from %s: scan: %w", table, err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// User is the result of a successful login.
type User struct {
	ID       int64
	Username string
}

// Login invokes the login_user remote procedure. Returns ok=false on
// unknown credentials (the procedure yields an empty set).
func (c *Client) Login(ctx context.Context, username, password string) (User, bool, error) {
	var u User
	err := c.db.QueryRowContext(ctx,
		"SELECT id, username FROM login_user($1, $2)", username, password,
	).Scan(&u.ID, &u.Username)
	if err == sql.ErrNoRows {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("login_user: %w", err)
	}
	return u, true, nil
}

// VerifyUser invokes the verify_app_user remote procedure, which only
// reports whether the credentials are valid.
func (c *Client) VerifyUser(ctx context.Context, username, password string) (bool, error) {
	var ok bool
	err := c.db.QueryRowContext(ctx,
		"SELECT verify_app_user($1, $2)", username, password,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("verify_app_user: %w", err)
	}
	return ok, nil
}

// CreateUser invokes the create_app_user remote procedure and returns
// the new user's identifier. Fails when the username already exists.
func (c *Client) CreateUser(ctx context.Context, username, password string) (int64, error) {
	var id int64
	err := c.db.QueryRowContext(ctx,
		"SELECT create_app_user($1, $2)", username, password,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create_app_user: %w", err)
	}
	return id, nil
}
