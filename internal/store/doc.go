// Package store owns the embedded SQLite cash book: schema bootstrap
// and migration, CRUD over ledger entries and reference entities, the
// derived balance and category views, and the scoped bulk-write
// transaction used by import-heavy callers.
//
// Open is safe to call on every start: each migration step is
// idempotent and a store that is already current is left untouched.
package store
