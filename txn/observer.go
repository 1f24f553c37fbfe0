// Package txn defines the transaction-boundary observation protocol: a
// database's per-row change stream collapsed into a single dirty flag
// per transaction, and the hooks a writer fires around commit/rollback.
package txn

import (
	"context"

	"github.com/kasuganosora/fetchedrecords/identity"
	"github.com/kasuganosora/fetchedrecords/query"
)

// RowChangeEvent describes one row-level mutation observed inside a
// transaction, as reported by the database's commit hook.
type RowChangeEvent struct {
	Table string
	Key   string
}

// Observer is the transaction-hook interface a writer invokes. All four
// hooks run on the writer's own serialized execution context; none may
// block on the diff or consumer contexts.
type Observer interface {
	// OnRowChange is called once per row mutation inside the current
	// transaction, before commit. Implementations must not do anything
	// beyond bookkeeping (e.g. setting a dirty flag): this runs on the
	// writer's hot path.
	OnRowChange(event RowChangeEvent)

	// OnWillCommit is called immediately before the transaction is
	// durably committed. It must never fail; its return is ignored by
	// design — a transaction observer cannot veto a commit.
	OnWillCommit()

	// OnRollback is called when the transaction aborts instead of
	// committing. No edit script may ever be emitted for a rolled-back
	// transaction.
	OnRollback()

	// OnCommit is called after the transaction is durably committed,
	// still on the writer context. db is the handle to use for any
	// refetch the observer needs to perform.
	OnCommit(ctx context.Context, db Database)
}

// Database is the database capability an Observer's OnCommit hook needs
// to perform a refetch: schema access for identity construction and
// query execution for the refetch itself. Package sqldb's concrete
// connection implements both halves with one type.
type Database interface {
	identity.SchemaProvider
	query.Database
}

// DatabaseWriter runs write jobs on the writer context, serialized with
// every transaction the underlying database commits. job receives the
// same Database handle OnCommit hooks observe.
type DatabaseWriter interface {
	Write(ctx context.Context, job func(db Database) error) error

	// AddTransactionObserver registers an Observer to receive hooks for
	// every subsequent transaction. Registration is permanent for the
	// writer's lifetime — there is no Remove, matching §4.F's "once
	// attached it remains for the controller's lifetime".
	AddTransactionObserver(o Observer)
}
