// Package handle defines the capability the commit coordinator consumes: a
// wrapper around one physical database file supporting begin/execute/commit/
// rollback and carrying a persisted commit generation marker.
package handle

// Mutation is one write applied to a single database file inside the
// currently open transaction. Applying a mutation never itself persists
// anything; durability happens at commit.
type Mutation struct {
	SQL  string
	Args []any
}

// Handle wraps one physical database file. A handle is owned exclusively by
// the commit scheduler for its lifetime: created at startup, destroyed at
// shutdown, and never shared between commit cycles.
type Handle interface {
	// Name is the handle's stable identity. Commit ordering is
	// lexicographic by name.
	Name() string

	// Begin opens a transaction. Fails with ErrAlreadyOpenTransaction if
	// one is active, which indicates an internal-logic fault given the
	// single-group invariant.
	Begin() error

	// Execute applies a mutation inside the current transaction.
	Execute(m Mutation) error

	// Commit flushes to durable storage, advancing the generation marker
	// by exactly 1 atomically with the data. On I/O failure the in-memory
	// state rolls back to the last successful commit and ErrCommitFailed
	// is returned.
	Commit() error

	// Rollback discards uncommitted work unconditionally.
	Rollback() error

	// Generation returns the current commit generation marker.
	Generation() uint64

	// InTransaction reports whether a transaction is open.
	InTransaction() bool

	Close() error
}
