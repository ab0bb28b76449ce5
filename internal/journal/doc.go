// Package journal persists manuscripts, revisions, reviews and users in
// SQLite and exposes the derived queries the workflow consults before acting.
//
// Store owns the connection pool and schema. Writes that belong to one
// workflow transition go through WithTx, which hands the callback a Tx with
// the same data methods as Store. The connection is opened with
// _txlock=immediate so concurrent write transactions serialize at BEGIN.
//
// Schema changes bump the version in schema.go; there is no migration path.
package journal
