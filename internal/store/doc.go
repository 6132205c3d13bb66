// Package store provides a SQLite-backed ledger host.
//
// The database holds two tables:
//   - accounts: the current record at every address (owner, kind, data)
//   - operations: the append-only journal of every operation, successful or not
//
// # Atomicity
//
// Each Atomically call runs in one SQL transaction. A successful
// operation's journal row is written in that same transaction, so state
// and journal never disagree. A rejected operation is rolled back and then
// journaled on its own with its error code as outcome.
//
// # Ordering
//
// Journal rows are ordered by seq, a logical counter assigned at write
// time. Reads always ORDER BY seq ASC so listings are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - golang-migrate: embedded, versioned schema migrations
//
// Journal args are stored as RFC 8785 canonical JSON and each row carries
// the operation digest computed by ledger.Operation.Digest.
package store
