// Package fetchedrecords implements Controller[R]: the reactive
// projection of a query's result set, kept in step with the database by
// diffing each committed transaction's refetch against the previous
// snapshot and delivering the resulting edit script to a delegate.
package fetchedrecords

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/fetchedrecords/diffengine"
	"github.com/kasuganosora/fetchedrecords/identity"
	"github.com/kasuganosora/fetchedrecords/query"
	"github.com/kasuganosora/fetchedrecords/row"
	"github.com/kasuganosora/fetchedrecords/txn"
)

// diffQueueDepth bounds how many pending refetches the diff context will
// buffer before Submit blocks the writer context. Transactions commit
// one at a time and a diff is cheap relative to a commit, so this is
// generous headroom rather than a tuned value.
const diffQueueDepth = 64

// Config bundles a Controller's construction-time, immutable parameters.
type Config[R any] struct {
	// Source prepares the query this controller projects.
	Source query.Source[R]

	// DB is the writer the controller submits performFetch and refetch
	// jobs to, and registers its transaction observer with.
	DB txn.DatabaseWriter

	// ConsumerContext is the serial execution context PerformFetch must
	// be called from, and on which Delegate callbacks and the public
	// read API run.
	ConsumerContext Executor

	// Decode converts a fetched row.Row into a record of type R.
	Decode func(row.Row) R

	// PostFetchHook runs once per Item, the first time its record is
	// materialized. Optional.
	PostFetchHook row.PostFetchHook[R]

	// IdentityBuilder constructs the record-identity predicate at first
	// PerformFetch, deferred until a Database handle (and therefore
	// schema access, for primary-key identity) is available. Defaults
	// to identity.Never[R] when nil.
	IdentityBuilder func(db txn.Database) identity.Func[R]

	// Logger receives commit/rollback/fetch-error diagnostics. Defaults
	// to a no-op logger when nil.
	Logger *zap.Logger
}

// IdentityByPrimaryKey builds an IdentityBuilder that compares records
// by the given table's primary-key column values, for use as
// Config.IdentityBuilder when R implements identity.RowAccessor. A
// schema lookup failure or a table with no primary key degrades to
// identity.Never[R], matching identity.ByPrimaryKey's own contract.
func IdentityByPrimaryKey[R identity.RowAccessor](table string) func(db txn.Database) identity.Func[R] {
	return func(db txn.Database) identity.Func[R] {
		fn, err := identity.ByPrimaryKey[R](db, table)
		if err != nil {
			return identity.Never[R]()
		}
		return fn
	}
}

// Controller is the reactive fetched-records projection. Each field
// below is pinned to exactly one of three execution contexts (writer,
// diff, consumer); the comment on each names its owner. Cross-context
// handoff happens only by submitting a job carrying freshly fetched
// data, never by sharing a field.
type Controller[R any] struct {
	// Immutable after construction.
	source          query.Source[R]
	db              txn.DatabaseWriter
	consumerContext Executor
	diffContext     *SerialExecutor
	decode          func(row.Row) R
	hook            row.PostFetchHook[R]
	identityBuilder func(db txn.Database) identity.Func[R]
	logger          *zap.Logger

	// consumerContext only.
	mainSnapshot []*row.Item[R]
	fetched      bool
	delegate     Delegate[R]

	// diffContext only.
	diffSnapshot []*row.Item[R]

	// Set once at first PerformFetch (consumerContext), read from
	// diffContext thereafter — publication is safe because the first
	// script that could read it is submitted after the write completes.
	identity identity.Func[R]

	// writerContext only, via tracker.
	tracker *txn.TableScopeTracker

	// May be read from any context; only ever written once, consumer
	// context, false->true.
	observing atomic.Bool

	// Cancellation flag jobs in diffContext/consumerContext check before
	// touching controller state, standing in for a weak back-reference:
	// once Close has run, queued jobs become no-ops instead of
	// resurrecting a logically-dead controller.
	closed atomic.Bool
}

// New constructs an inert Controller: it stores cfg's fields, starts the
// diff context, and does not touch the database. PerformFetch is the
// only transition that attaches the transaction observer.
func New[R any](cfg Config[R]) *Controller[R] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identityBuilder := cfg.IdentityBuilder
	if identityBuilder == nil {
		identityBuilder = func(txn.Database) identity.Func[R] { return identity.Never[R]() }
	}

	return &Controller[R]{
		source:          cfg.Source,
		db:              cfg.DB,
		consumerContext: cfg.ConsumerContext,
		diffContext:     NewSerialExecutor(diffQueueDepth),
		decode:          cfg.Decode,
		hook:            cfg.PostFetchHook,
		identityBuilder: identityBuilder,
		logger:          logger,
	}
}

// PerformFetch must be called from the consumer context. It submits a
// write-synchronous job to the database: prepare the source statement,
// fetch every row, and either attach the transaction observer (first
// call) or replace the snapshots (subsequent calls).
//
// On every call, not just the first, diffSnapshot is synchronized with
// the freshly fetched snapshot (open question in §9 of the
// specification this controller implements, resolved as option (b)):
// an explicit refetch always becomes the new diff baseline, so the next
// commit's diff is never computed against a stale pre-refetch snapshot.
func (c *Controller[R]) PerformFetch(ctx context.Context) error {
	return c.db.Write(ctx, func(db txn.Database) error {
		stmt, err := c.source.Prepare(ctx, db)
		if err != nil {
			return NewConfigurationError("prepare source statement", err)
		}

		tables := stmt.SourceTables()
		rows, err := stmt.Fetch(ctx, db)
		if err != nil {
			return NewConfigurationError("fetch source statement", err)
		}
		items := itemsFromRows(rows, c.decode, c.hook)

		if !c.observing.Load() {
			c.identity = c.identityBuilder(db)
			c.diffSnapshot = items
			c.tracker = txn.NewTableScopeTracker(tables, txn.RefetchConfig{
				Refetch: c.refetch,
				OnItems: c.handleCommitItems,
				OnError: c.handleCommitError,
			})
			c.db.AddTransactionObserver(c.tracker)
			c.observing.Store(true)
		} else {
			c.tracker.SetObservedTables(tables)
			runSync(c.diffContext, func() {
				c.diffSnapshot = items
			})
		}

		// PerformFetch is itself running on the consumer context (per
		// its own contract), so mainSnapshot is assigned directly.
		c.mainSnapshot = items
		c.fetched = true
		return nil
	})
}

// refetch runs on the writer context, inside the transaction observer's
// OnCommit hook: it re-prepares the source and fetches the new
// projection. It never mutates controller state itself; the result
// flows into handleCommitItems.
func (c *Controller[R]) refetch(ctx context.Context, db txn.Database) (any, error) {
	stmt, err := c.source.Prepare(ctx, db)
	if err != nil {
		return nil, NewFetchError("re-prepare source statement at commit", err)
	}
	rows, err := stmt.Fetch(ctx, db)
	if err != nil {
		return nil, NewFetchError("refetch rows at commit", err)
	}
	return itemsFromRows(rows, c.decode, c.hook), nil
}

// handleCommitItems runs on the writer context (called synchronously by
// TableScopeTracker.OnCommit). It submits the diff job and returns; the
// writer blocks only while the diff queue already holds diffQueueDepth
// pending jobs. Once Close has run it submits nothing.
func (c *Controller[R]) handleCommitItems(newItemsAny any) {
	if c.closed.Load() {
		return
	}
	newItems := newItemsAny.([]*row.Item[R])
	handoffID := uuid.New()
	c.logger.Debug("refetch complete, dispatching diff",
		zap.String("fetchedrecords.handoff.id", handoffID.String()),
		zap.Int("items", len(newItems)))

	c.diffContext.Submit(func() {
		if c.closed.Load() {
			return
		}
		changes := diffengine.Diff(c.diffSnapshot, newItems, c.identity)
		c.diffSnapshot = newItems
		if len(changes) == 0 {
			return
		}
		c.consumerContext.Submit(func() {
			if c.closed.Load() {
				return
			}
			c.applyChanges(newItems, changes)
		})
	})
}

// handleCommitError runs on the writer context. The refetch failure
// never propagates into the database's commit machinery; it is logged
// and, if the delegate opts in via ErrorDelegate, surfaced there.
func (c *Controller[R]) handleCommitError(err error) {
	wrapped := NewFetchError("commit-time refetch failed", err)
	c.logger.Error("commit-time refetch failed", zap.Error(wrapped))

	c.consumerContext.Submit(func() {
		if c.closed.Load() {
			return
		}
		if c.delegate == nil {
			return
		}
		if ed, ok := any(c.delegate).(ErrorDelegate); ok {
			ed.DidFailWithError(wrapped)
		}
	})
}

// applyChanges runs on the consumer context: it replaces mainSnapshot
// and drives the delegate through the edit script in order.
func (c *Controller[R]) applyChanges(newItems []*row.Item[R], changes []diffengine.ItemChange[R]) {
	if c.delegate != nil {
		c.delegate.WillChangeRecords(c)
	}
	c.mainSnapshot = newItems
	c.fetched = true
	for _, change := range changes {
		if c.delegate != nil {
			c.delegate.DidChangeRecord(c, change.Item.Record(), eventFromChange(change))
		}
	}
	if c.delegate != nil {
		c.delegate.DidChangeRecords(c)
	}
}

// SetDelegate installs d as the controller's delegate. Must be called
// from the consumer context.
func (c *Controller[R]) SetDelegate(d Delegate[R]) {
	c.delegate = d
}

// FetchedRecords returns the current projection's records in order, and
// false if PerformFetch has never been called. Must be called from the
// consumer context.
func (c *Controller[R]) FetchedRecords() ([]R, bool) {
	if !c.fetched {
		return nil, false
	}
	out := make([]R, len(c.mainSnapshot))
	for i, it := range c.mainSnapshot {
		out[i] = it.Record()
	}
	return out, true
}

// RecordAt returns the record at index within the current projection.
// An out-of-range index is a programmer error and panics, matching
// §7's classification of out-of-range recordAt as a contract violation.
func (c *Controller[R]) RecordAt(index int) R {
	if index < 0 || index >= len(c.mainSnapshot) {
		panic(NewProgrammerError("RecordAt: index out of range"))
	}
	return c.mainSnapshot[index].Record()
}

// IndexOf returns the first index whose record is identity-equal to
// record, or false if none matches. Without an explicit or
// primary-key-based identity, this always reports false.
func (c *Controller[R]) IndexOf(record R) (int, bool) {
	if c.identity == nil {
		return 0, false
	}
	for i, it := range c.mainSnapshot {
		if c.identity(it.Record(), record) {
			return i, true
		}
	}
	return 0, false
}

// Sections returns a single-section view over the current projection.
func (c *Controller[R]) Sections() SectionView[R] {
	records := make([]R, len(c.mainSnapshot))
	for i, it := range c.mainSnapshot {
		records[i] = it.Record()
	}
	return SectionView[R]{records: records}
}

// Close cancels the controller: queued and future diff/consumer jobs
// become no-ops, and the diff context's goroutine is stopped. It does
// not detach the transaction observer (the writer may still hold a
// reference to it and calling its hooks after Close must remain safe:
// handleCommitItems returns without submitting to the stopped diff
// context once Close has run).
func (c *Controller[R]) Close() {
	c.closed.Store(true)
	c.diffContext.Close()
}

func itemsFromRows[R any](rows []row.Row, decode func(row.Row) R, hook row.PostFetchHook[R]) []*row.Item[R] {
	items := make([]*row.Item[R], len(rows))
	for i, r := range rows {
		items[i] = row.NewItem(r, decode, hook)
	}
	return items
}
