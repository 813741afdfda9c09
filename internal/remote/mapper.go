package remote

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// LocalTuple is the flat row shape the presentation and report
// collaborators consume: display names instead of identifiers, the
// kind as a label, the balance already signed, the date in day-first
// display form.
type LocalTuple struct {
	ID            int64
	Date          string
	Property      string
	DocNumber     string
	Counterparty  string
	Memo          string
	Kind          string
	Credit        decimal.Decimal
	Debit         decimal.Decimal
	SignedBalance decimal.Decimal
	Author        string
}

// ToLocalTuple translates one remote row into the flat local shape.
//
// propertyNames and counterpartyNames are lookup maps the caller built
// from a single batch query over the distinct ids in the result set
// (PropertyNames / CounterpartyNames); resolving names row by row
// against the backend is exactly the N+1 pattern this signature
// prevents. Missing ids resolve to an empty name.
func ToLocalTuple(r Row, propertyNames, counterpartyNames map[int64]string) LocalTuple {
	t := LocalTuple{
		ID:        r.ID,
		Date:      ledger.FormatBR(r.Date),
		Property:  propertyNames[r.PropertyID],
		DocNumber: r.DocNumber.String,
		Memo:      r.Memo,
		Kind:      ledger.Kind(r.Kind).Label(),
		Credit:    r.Credit,
		Debit:     r.Debit,
		Author:    r.Author,
	}
	if r.CounterpartyID.Valid {
		t.Counterparty = counterpartyNames[r.CounterpartyID.Int64]
	}
	t.SignedBalance = r.Balance
	if ledger.BalanceSign(r.BalanceSign) != ledger.SignPositive {
		t.SignedBalance = r.Balance.Neg()
	}
	return t
}

// ToRemoteRow translates a local entry into the remote row shape for
// an upsert-by-identifier write. The remote side keys on id, so a
// collision overwrites the previous row wholesale.
func ToRemoteRow(e ledger.Entry) Row {
	r := Row{
		ID:          e.ID,
		Date:        ledger.OrdToBR(e.DateOrd),
		PropertyID:  e.PropertyID,
		AccountID:   e.AccountID,
		Memo:        e.Memo,
		Kind:        int(e.Kind),
		Credit:      e.Credit,
		Debit:       e.Debit,
		Balance:     e.Balance,
		BalanceSign: string(e.BalanceSign),
		Author:      e.Author,
		DateOrd:     sql.NullInt64{Int64: int64(e.DateOrd), Valid: e.DateOrd != 0},
	}
	if e.DocNumber != "" {
		r.DocNumber = sql.NullString{String: e.DocNumber, Valid: true}
	}
	if e.DocType != "" {
		r.DocType = sql.NullString{String: e.DocType, Valid: true}
	}
	if e.Category != "" {
		r.Category = sql.NullString{String: e.Category, Valid: true}
	}
	if e.CounterpartyID != nil {
		r.CounterpartyID = sql.NullInt64{Int64: *e.CounterpartyID, Valid: true}
	}
	return r
}

// ToLocalEntry translates a remote row into the local entry shape,
// used when mirroring remote changes into the embedded store.
func ToLocalEntry(r Row) ledger.Entry {
	e := ledger.Entry{
		ID:          r.ID,
		Date:        ledger.FormatBR(r.Date),
		PropertyID:  r.PropertyID,
		AccountID:   r.AccountID,
		DocNumber:   r.DocNumber.String,
		DocType:     r.DocType.String,
		Memo:        r.Memo,
		Kind:        ledger.Kind(r.Kind),
		Credit:      r.Credit,
		Debit:       r.Debit,
		Balance:     r.Balance,
		BalanceSign: ledger.BalanceSign(r.BalanceSign),
		Author:      r.Author,
		Category:    r.Category.String,
	}
	if r.CounterpartyID.Valid {
		id := r.CounterpartyID.Int64
		e.CounterpartyID = &id
	}
	if r.DateOrd.Valid {
		e.DateOrd = int(r.DateOrd.Int64)
	} else if ord, ok := ledger.DateOrdOf(r.Date); ok {
		e.DateOrd = ord
	}
	return e
}

// feedRecord is the change-feed JSON shape of one ledger row. Numeric
// columns arrive as JSON numbers or strings depending on the trigger's
// row_to_json rendering, so decimal.Decimal (which accepts both) does
// the parsing.
type feedRecord struct {
	ID             int64           `json:"id"`
	Date           string          `json:"entry_date"`
	PropertyID     int64           `json:"property_id"`
	AccountID      int64           `json:"account_id"`
	DocNumber      *string         `json:"doc_number"`
	DocType        *string         `json:"doc_type"`
	Memo           string          `json:"memo"`
	CounterpartyID *int64          `json:"counterparty_id"`
	Kind           int             `json:"entry_kind"`
	Credit         decimal.Decimal `json:"credit"`
	Debit          decimal.Decimal `json:"debit"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceSign    string          `json:"balance_sign"`
	Author         string          `json:"author"`
	Category       *string         `json:"category"`
	DateOrd        *int64          `json:"date_ord"`
}

// DecodeFeedRecord parses a change-feed record payload into the remote
// row shape.
func DecodeFeedRecord(raw json.RawMessage) (Row, error) {
	var rec feedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Row{}, fmt.Errorf("decode feed record: %w", err)
	}
	if rec.ID == 0 {
		return Row{}, fmt.Errorf("decode feed record: missing id")
	}
	r := Row{
		ID:          rec.ID,
		Date:        rec.Date,
		PropertyID:  rec.PropertyID,
		AccountID:   rec.AccountID,
		Memo:        rec.Memo,
		Kind:        rec.Kind,
		Credit:      rec.Credit,
		Debit:       rec.Debit,
		Balance:     rec.Balance,
		BalanceSign: rec.BalanceSign,
		Author:      rec.Author,
	}
	if rec.DocNumber != nil {
		r.DocNumber = sql.NullString{String: *rec.DocNumber, Valid: true}
	}
	if rec.DocType != nil {
		r.DocType = sql.NullString{String: *rec.DocType, Valid: true}
	}
	if rec.Category != nil {
		r.Category = sql.NullString{String: *rec.Category, Valid: true}
	}
	if rec.CounterpartyID != nil {
		r.CounterpartyID = sql.NullInt64{Int64: *rec.CounterpartyID, Valid: true}
	}
	if rec.DateOrd != nil {
		r.DateOrd = sql.NullInt64{Int64: *rec.DateOrd, Valid: true}
	}
	return r, nil
}
