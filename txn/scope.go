package txn

import (
	"context"
	"sync"
)

// RefetchFunc performs the commit-time refetch: re-prepare the source
// statement against db and return the newly decoded item sequence, as
// an opaque value the caller (fetchedrecords.Controller) knows how to
// hand off to its diff stage.
type RefetchFunc func(ctx context.Context, db Database) (any, error)

// CommitHandler receives the refetched item sequence for a dirty,
// committed transaction. It runs on the writer context, so it must not
// block — its job is to hand newItems to the diff context and return.
type CommitHandler func(newItems any)

// ErrorHandler is invoked when a commit-time refetch fails. The error
// is fatal to the controller's projection (it becomes indeterminate)
// but must never propagate into the database's commit machinery.
type ErrorHandler func(err error)

// TableScopeTracker implements Observer by collapsing row-change events
// into a single dirty flag, scoped to a fixed set of observed tables,
// and performing the commit-time refetch/handoff described in §4.E.
//
// All four Observer methods run on the writer context and are called
// strictly serially by the database, so the dirty flag itself needs no
// synchronization; the mutex here only guards observedTables against
// the one case where it could otherwise race: a concurrent call to
// SetObservedTables from outside the writer context (none of this
// module makes such a call today, but the tracker does not assume it).
type TableScopeTracker struct {
	mu             sync.RWMutex
	observedTables map[string]bool

	dirty bool

	refetch RefetchConfig
}

// RefetchConfig bundles the refetch and its result/error handlers so
// NewTableScopeTracker takes one argument instead of three positional
// funcs that are easy to transpose.
type RefetchConfig struct {
	Refetch RefetchFunc
	OnItems CommitHandler
	OnError ErrorHandler
}

// NewTableScopeTracker builds a tracker observing exactly the given
// tables. handler.Refetch is called on the writer context inside
// OnCommit when a transaction touched an observed table.
func NewTableScopeTracker(observedTables map[string]bool, handler RefetchConfig) *TableScopeTracker {
	tables := make(map[string]bool, len(observedTables))
	for t := range observedTables {
		tables[t] = true
	}
	return &TableScopeTracker{observedTables: tables, refetch: handler}
}

// SetObservedTables replaces the observed table set, e.g. after a
// performFetch that re-prepares the source statement.
func (t *TableScopeTracker) SetObservedTables(tables map[string]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observedTables = make(map[string]bool, len(tables))
	for k := range tables {
		t.observedTables[k] = true
	}
}

func (t *TableScopeTracker) isObserved(table string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.observedTables[table]
}

// OnRowChange implements Observer. It flags dirty, conservatively, the
// moment any touched table is in scope — per invariant 4, this never
// goes the other way.
func (t *TableScopeTracker) OnRowChange(event RowChangeEvent) {
	if t.isObserved(event.Table) {
		t.dirty = true
	}
}

// OnWillCommit implements Observer; it is a deliberate no-op.
func (t *TableScopeTracker) OnWillCommit() {}

// OnRollback implements Observer: clears dirty without emitting
// anything. A rolled-back transaction never reaches OnCommit.
func (t *TableScopeTracker) OnRollback() {
	t.dirty = false
}

// OnCommit implements Observer. If the transaction never touched an
// observed table it is a no-op; otherwise it clears dirty, refetches,
// and hands the result (or error) to the configured handler.
func (t *TableScopeTracker) OnCommit(ctx context.Context, db Database) {
	if !t.dirty {
		return
	}
	t.dirty = false

	newItems, err := t.refetch.Refetch(ctx, db)
	if err != nil {
		if t.refetch.OnError != nil {
			t.refetch.OnError(err)
		}
		return
	}
	t.refetch.OnItems(newItems)
}
