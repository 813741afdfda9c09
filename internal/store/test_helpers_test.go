package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// createTestStore creates a store backed by a fresh file for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRefs inserts one property and one account so entries have
// valid foreign keys, returning their ids.
func createTestRefs(t *testing.T, s *Store) (propertyID, accountID int64) {
	t.Helper()
	propertyID, err := s.CreateProperty(&ledger.Property{
		Code: "001", Name: "Fazenda Teste", Country: "BR", Currency: "BRL",
	})
	if err != nil {
		t.Fatalf("CreateProperty() failed: %v", err)
	}
	accountID, err = s.CreateAccount(&ledger.Account{
		Code: "001", BankCode: "001", BankName: "Banco Teste",
		Branch: "0001", Number: "12345-6",
	})
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return propertyID, accountID
}

// newTestEntry builds a minimal valid entry on the given dimensions.
func newTestEntry(propertyID, accountID int64, date string) *ledger.Entry {
	return &ledger.Entry{
		Date:        date,
		PropertyID:  propertyID,
		AccountID:   accountID,
		Memo:        "venda de soja",
		Kind:        ledger.KindRevenue,
		Credit:      decimal.NewFromInt(100),
		Debit:       decimal.Zero,
		Balance:     decimal.NewFromInt(100),
		BalanceSign: ledger.SignPositive,
		Author:      "tester",
	}
}
