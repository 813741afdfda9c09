package store

import (
	"fmt"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// Bulk is the write surface available inside WithBulkTransaction.
// Every write issued through it belongs to the enclosing transaction.
type Bulk struct {
	tx execer
}

// CreateEntry inserts an entry inside the bulk transaction.
func (b *Bulk) CreateEntry(e *ledger.Entry) (int64, error) {
	return createEntry(b.tx, e)
}

// UpdateEntry rewrites an entry inside the bulk transaction.
func (b *Bulk) UpdateEntry(e *ledger.Entry) error {
	return updateEntry(b.tx, e)
}

// DeleteEntry removes an entry inside the bulk transaction.
func (b *Bulk) DeleteEntry(id int64) error {
	return deleteEntry(b.tx, id)
}

// CreateCounterparty inserts a counterparty inside the bulk
// transaction.
func (b *Bulk) CreateCounterparty(c *ledger.Counterparty) (int64, error) {
	return createCounterparty(b.tx, c)
}

// WithBulkTransaction runs fn inside one exclusive write transaction.
// Import-heavy callers use it because statement-by-statement
// auto-commit would be both slow and non-atomic.
//
// The connection is opened with _txlock=immediate, so the transaction
// claims the write lock up front and concurrent writers wait until the
// scope completes. A nil return from fn commits every write; an error
// or a panic rolls back every write in the scope.
func (s *Store) WithBulkTransaction(fn func(*Bulk) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("bulk tx: begin: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback() // also the panic path
		}
	}()

	if err := fn(&Bulk{tx: tx}); err != nil {
		return fmt.Errorf("bulk tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bulk tx: commit: %w", err)
	}
	done = true
	return nil
}
