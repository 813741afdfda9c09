package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mvfarias/agrobook/internal/ledger"
)

func TestWithBulkTransaction_CommitsAllWrites(t *testing.T) {
	s := createTestStore(t)
	propID, acctID := createTestRefs(t, s)

	err := s.WithBulkTransaction(func(b *Bulk) error {
		for i := 0; i < 5; i++ {
			if _, err := b.CreateEntry(newTestEntry(propID, acctID, "15/03/2024")); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBulkTransaction() failed: %v", err)
	}

	entries, err := s.ListEntries(20240101, 20241231, Filter{})
	if err != nil {
		t.Fatalf("ListEntries() failed: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("got %d entries, want 5", len(entries))
	}
}

func TestWithBulkTransaction_ErrorRollsBackEverything(t *testing.T) {
	s := createTestStore(t)
	propID, acctID := createTestRefs(t, s)

	boom := errors.New("boom")
	err := s.WithBulkTransaction(func(b *Bulk) error {
		for i := 0; i < 5; i++ {
			if i == 2 {
				return fmt.Errorf("row %d: %w", i, boom)
			}
			if _, err := b.CreateEntry(newTestEntry(propID, acctID, "15/03/2024")); err != nil {
				return err
			}
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithBulkTransaction() = %v, want wrapped boom", err)
	}

	entries, err := s.ListEntries(20240101, 20241231, Filter{})
	if err != nil {
		t.Fatalf("ListEntries() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after rollback, want 0", len(entries))
	}
}

func TestWithBulkTransaction_PanicRollsBack(t *testing.T) {
	s := createTestStore(t)
	propID, acctID := createTestRefs(t, s)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate out of the bulk scope")
			}
		}()
		_ = s.WithBulkTransaction(func(b *Bulk) error {
			if _, err := b.CreateEntry(newTestEntry(propID, acctID, "15/03/2024")); err != nil {
				return err
			}
			panic("importer bug")
		})
	}()

	entries, err := s.ListEntries(20240101, 20241231, Filter{})
	if err != nil {
		t.Fatalf("ListEntries() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after panic, want 0", len(entries))
	}
}

func TestWithBulkTransaction_MixedWrites(t *testing.T) {
	s := createTestStore(t)
	propID, acctID := createTestRefs(t, s)

	existing, err := s.CreateEntry(newTestEntry(propID, acctID, "10/03/2024"))
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}

	err = s.WithBulkTransaction(func(b *Bulk) error {
		if _, err := b.CreateCounterparty(&ledger.Counterparty{
			TaxID: "52998224725", Name: "Produtor Vizinho", Kind: ledger.CounterpartyNatural,
		}); err != nil {
			return err
		}
		if _, err := b.CreateEntry(newTestEntry(propID, acctID, "11/03/2024")); err != nil {
			return err
		}
		return b.DeleteEntry(existing)
	})
	if err != nil {
		t.Fatalf("WithBulkTransaction() failed: %v", err)
	}

	if _, err := s.GetEntry(existing); err == nil {
		t.Error("deleted entry still present after commit")
	}
	if _, err := s.CounterpartyByTaxID("52998224725"); err != nil {
		t.Errorf("counterparty not present after commit: %v", err)
	}
}
