// Package ledger defines the domain types shared by the embedded store,
// the remote sync client, and the CLI: ledger entries, the reference
// entities they point at, and the ordinal date encoding used for all
// chronological filtering and ordering.
package ledger
