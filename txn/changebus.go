package txn

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/fetchedrecords/identity"
	"github.com/kasuganosora/fetchedrecords/query"
)

// ChangeBus is a minimal DatabaseWriter backed by a Badger KV store. It
// exists to give the transaction-observer protocol something real to
// drive in tests: Badger's own Txn.CommitWith callback is the nearest
// ecosystem analogue to the source database's per-transaction commit
// hook, so ChangeBus threads Observer notifications through it instead
// of hand-rolling a fake commit callback.
//
// It is not a general-purpose query engine: table scoping is modeled by
// a key prefix ("table/key"), and TableInfo only ever reports the
// table's name (Badger carries no column schema).
type ChangeBus struct {
	db        *badger.DB
	observers []Observer
}

// NewChangeBus opens an in-memory Badger instance for use as a
// DatabaseWriter test double.
func NewChangeBus() (*ChangeBus, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &ChangeBus{db: db}, nil
}

// Close releases the underlying Badger instance.
func (b *ChangeBus) Close() error {
	return b.db.Close()
}

// AddTransactionObserver implements DatabaseWriter.
func (b *ChangeBus) AddTransactionObserver(o Observer) {
	b.observers = append(b.observers, o)
}

// Put stages a single-row write inside a fresh Badger transaction and
// runs it through the observer protocol: OnRowChange for the write,
// OnWillCommit/OnCommit on success via CommitWith, OnRollback if the
// underlying commit fails.
func (b *ChangeBus) Put(ctx context.Context, table, key string, value []byte) error {
	return b.transact(ctx, func(btxn *badger.Txn) error {
		b.notifyRowChange(table, key)
		return btxn.Set(badgerKey(table, key), value)
	})
}

// Delete stages a single-row delete and runs it through the observer
// protocol identically to Put.
func (b *ChangeBus) Delete(ctx context.Context, table, key string) error {
	return b.transact(ctx, func(btxn *badger.Txn) error {
		b.notifyRowChange(table, key)
		return btxn.Delete(badgerKey(table, key))
	})
}

// Write implements DatabaseWriter: job runs directly against the bus,
// without opening a Badger transaction (ChangeBus has no concept of a
// multi-statement write job beyond Put/Delete), and never triggers a
// commit hook itself.
func (b *ChangeBus) Write(ctx context.Context, job func(db Database) error) error {
	return job(b)
}

// TableInfo implements Database. ChangeBus carries no column schema, so
// only the name is populated.
func (b *ChangeBus) TableInfo(table string) (identity.TableInfo, error) {
	return identity.TableInfo{Name: table}, nil
}

// QueryContext implements Database minimally: ChangeBus is a KV store,
// not a SQL engine, so it has nothing to execute.
func (b *ChangeBus) QueryContext(ctx context.Context, sqlText string, args ...any) (query.Rows, error) {
	return nil, fmt.Errorf("changebus: SQL queries are not supported by this KV-backed harness")
}

func (b *ChangeBus) notifyRowChange(table, key string) {
	for _, o := range b.observers {
		o.OnRowChange(RowChangeEvent{Table: table, Key: key})
	}
}

func (b *ChangeBus) transact(ctx context.Context, write func(btxn *badger.Txn) error) error {
	btxn := b.db.NewTransaction(true)
	defer btxn.Discard()

	if err := write(btxn); err != nil {
		for _, o := range b.observers {
			o.OnRollback()
		}
		return err
	}

	for _, o := range b.observers {
		o.OnWillCommit()
	}

	done := make(chan error, 1)
	btxn.CommitWith(func(err error) { done <- err })

	if err := <-done; err != nil {
		for _, o := range b.observers {
			o.OnRollback()
		}
		return err
	}

	for _, o := range b.observers {
		o.OnCommit(ctx, b)
	}
	return nil
}

func badgerKey(table, key string) []byte {
	return []byte(table + "/" + key)
}
