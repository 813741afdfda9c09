package ledger

import (
	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry.
type Kind int

const (
	// KindRevenue marks money coming in (tipo_lanc = 1).
	KindRevenue Kind = 1
	// KindExpense marks money going out (tipo_lanc = 2).
	KindExpense Kind = 2
	// KindAdvance marks an advance to a future crop (any other code).
	KindAdvance Kind = 3
)

// Label returns the display label for the entry kind.
// Codes outside {1, 2} fall back to the advance label, matching how
// historical rows with stray codes have always been rendered.
func (k Kind) Label() string {
	switch k {
	case KindRevenue:
		return "Receita"
	case KindExpense:
		return "Despesa"
	default:
		return "Adiantamento"
	}
}

// BalanceSign indicates whether a closing balance magnitude is added or
// subtracted to obtain the signed running balance.
type BalanceSign string

const (
	SignPositive BalanceSign = "P"
	SignNegative BalanceSign = "N"
)

// Entry is one financial transaction row of the producer's cash book.
//
// ID is assigned by the store's auto-increment sequence and is never
// reused, even after deletion. DateOrd is the ordinal encoding of Date
// (year*10000 + month*100 + day) and must always agree with it; every
// range filter and ordering goes through DateOrd because it compares
// correctly regardless of the text format Date arrived in.
type Entry struct {
	ID             int64
	Date           string // display form dd/mm/yyyy
	DateOrd        int
	PropertyID     int64
	AccountID      int64
	DocNumber      string
	DocType        string
	Memo           string
	CounterpartyID *int64
	Kind           Kind
	Credit         decimal.Decimal
	Debit          decimal.Decimal
	Balance        decimal.Decimal // magnitude, always >= 0
	BalanceSign    BalanceSign
	Author         string
	Category       string
	AreaID         *int64
	Quantity       *decimal.Decimal
	Unit           string
}

// SignedBalance resolves the closing balance magnitude against its sign.
// Any sign other than "P" negates, matching the historical convention
// where a missing or unknown sign was treated as negative.
func (e Entry) SignedBalance() decimal.Decimal {
	if e.BalanceSign == SignPositive {
		return e.Balance
	}
	return e.Balance.Neg()
}

// Property is a rural property (imóvel) dimension row.
type Property struct {
	ID           int64
	Code         string
	Name         string
	Country      string
	Currency     string
	ITRNumber    string
	StateRegistr string
	Address      string
	City         string
	State        string
	PostalCode   string
	TotalArea    decimal.Decimal
	UsedArea     decimal.Decimal
}

// Account is a bank account dimension row.
type Account struct {
	ID             int64
	Code           string
	BankCode       string
	BankName       string
	Branch         string
	Number         string
	OpeningBalance decimal.Decimal
}

// CounterpartyKind distinguishes legal from natural persons.
type CounterpartyKind int

const (
	CounterpartyLegal   CounterpartyKind = 1
	CounterpartyNatural CounterpartyKind = 2
)

// Counterparty is the other party of an entry, keyed in business terms
// by its tax identifier (CNPJ or CPF digits).
type Counterparty struct {
	ID    int64
	TaxID string
	Name  string
	Kind  CounterpartyKind
}

// ProfileParams holds the per-profile declaration parameters, one row
// per profile name (insert-or-replace semantics).
type ProfileParams struct {
	Profile     string
	Version     string
	PeriodStart string
	SpecialSit  string
	TaxID       string
	Name        string
	Street      string
	Number      string
	Complement  string
	District    string
	State       string
	CityCode    string
	PostalCode  string
	Phone       string
	Email       string
}

// AccountBalance is the derived per-account view: the signed balance of
// the most recent (highest-id) entry, or the opening balance when the
// account has no entries yet.
type AccountBalance struct {
	AccountID int64
	Code      string
	Balance   decimal.Decimal
}

// CategorySummary is the derived monthly aggregation: credit and debit
// totals grouped by category, year, and month of the entry date.
type CategorySummary struct {
	Category string
	Year     int
	Month    int
	Credit   decimal.Decimal
	Debit    decimal.Decimal
}
