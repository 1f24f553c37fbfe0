package row

import "sync"

// PostFetchHook is invoked at most once per Item, the first time its
// record is materialized. It may mutate the decoded record in place
// (e.g. to resolve associations); concurrent callers of Record must
// observe the same resulting value, so the hook must not be invoked
// more than once even under a materialization race.
type PostFetchHook[R any] func(r *R)

// Item pairs an immutable Row with a record of type R that is decoded
// from it lazily, on first access. An Item is owned exclusively by
// whichever snapshot holds it; ownership transfers by move (handing the
// containing slice to the next pipeline stage), never by aliasing.
//
// Two Items are equal iff their rows are equal — the decoded record
// never participates in equality, since decoding may not have happened
// yet and, via the post-fetch hook, need not be deterministic byte-for-
// byte even when the underlying row is.
type Item[R any] struct {
	row     Row
	decode  func(Row) R
	hook    PostFetchHook[R]
	once    sync.Once
	record  R
	decoded bool
}

// NewItem constructs an Item from a row and a decode function, taking a
// defensive copy of the row. decode converts a Row into a record; hook,
// if non-nil, runs once against the decoded record before it is
// published to callers of Record.
func NewItem[R any](r Row, decode func(Row) R, hook PostFetchHook[R]) *Item[R] {
	return &Item[R]{row: New(r.columns, r.values), decode: decode, hook: hook}
}

// Row returns the item's row.
func (it *Item[R]) Row() Row { return it.row }

// Record returns the decoded record, materializing it on first call.
// Materialization is idempotent: every subsequent call, from any
// goroutine, returns the same value without re-invoking decode or the
// post-fetch hook.
func (it *Item[R]) Record() R {
	it.once.Do(func() {
		rec := it.decode(it.row)
		if it.hook != nil {
			it.hook(&rec)
		}
		it.record = rec
		it.decoded = true
	})
	return it.record
}

// Equal reports whether two items have equal rows. It does not force
// record materialization.
func (it *Item[R]) Equal(other *Item[R]) bool {
	return it.row.Equal(other.row)
}
