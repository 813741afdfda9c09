// Package remote talks to the cloud Postgres backend: credential
// loading, the SQL client used by the sync bridge, the remote auth
// procedures, and the mapper between the remote normalized rows and
// the flat tuples consumed by presentation and report collaborators.
package remote
