package fetchedrecords

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/fetchedrecords/diffengine"
	"github.com/kasuganosora/fetchedrecords/identity"
	"github.com/kasuganosora/fetchedrecords/query"
	"github.com/kasuganosora/fetchedrecords/row"
	"github.com/kasuganosora/fetchedrecords/txn"
)

type rec struct {
	ID   int
	Name string
}

func decodeRec(r row.Row) rec {
	id, _ := r.Get("id")
	name, _ := r.Get("name")
	return rec{ID: id.(int), Name: name.(string)}
}

func mkRow(id int, name string) row.Row {
	return row.New([]string{"id", "name"}, []any{id, name})
}

func byRecID(db txn.Database) identity.Func[rec] {
	return identity.ByKey(func(r rec) int { return r.ID })
}

type fakeDB struct{}

func (fakeDB) TableInfo(table string) (identity.TableInfo, error) {
	return identity.TableInfo{Name: table}, nil
}

func (fakeDB) QueryContext(ctx context.Context, sqlText string, args ...any) (query.Rows, error) {
	return nil, nil
}

type fakeStatement struct {
	tables map[string]bool
	rowsFn func() []row.Row
	err    error
}

func (s *fakeStatement) SourceTables() map[string]bool { return s.tables }

func (s *fakeStatement) Fetch(ctx context.Context, db query.Database) ([]row.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rowsFn(), nil
}

type fakeSource struct {
	tables map[string]bool
	rowsFn func() []row.Row
	err    error
}

func (s *fakeSource) Prepare(ctx context.Context, db query.Database) (query.Statement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fakeStatement{tables: s.tables, rowsFn: s.rowsFn}, nil
}

type fakeWriter struct {
	db        txn.Database
	observers []txn.Observer
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{db: fakeDB{}}
}

func (w *fakeWriter) Write(ctx context.Context, job func(db txn.Database) error) error {
	return job(w.db)
}

func (w *fakeWriter) AddTransactionObserver(o txn.Observer) {
	w.observers = append(w.observers, o)
}

func (w *fakeWriter) Commit(ctx context.Context, table, key string) {
	for _, o := range w.observers {
		o.OnRowChange(txn.RowChangeEvent{Table: table, Key: key})
	}
	for _, o := range w.observers {
		o.OnWillCommit()
	}
	for _, o := range w.observers {
		o.OnCommit(ctx, w.db)
	}
}

func (w *fakeWriter) Rollback(ctx context.Context, table, key string) {
	for _, o := range w.observers {
		o.OnRowChange(txn.RowChangeEvent{Table: table, Key: key})
	}
	for _, o := range w.observers {
		o.OnWillCommit()
	}
	for _, o := range w.observers {
		o.OnRollback()
	}
}

type recordingDelegate struct {
	mu          sync.Mutex
	willCount   int
	didAllCount int
	events      []FetchedRecordsEvent
	records     []rec
	done        chan struct{}
}

func newRecordingDelegate() *recordingDelegate {
	return &recordingDelegate{done: make(chan struct{}, 16)}
}

func (d *recordingDelegate) WillChangeRecords(c *Controller[rec]) {
	d.mu.Lock()
	d.willCount++
	d.mu.Unlock()
}

func (d *recordingDelegate) DidChangeRecord(c *Controller[rec], record rec, event FetchedRecordsEvent) {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.records = append(d.records, record)
	d.mu.Unlock()
}

func (d *recordingDelegate) DidChangeRecords(c *Controller[rec]) {
	d.mu.Lock()
	d.didAllCount++
	d.mu.Unlock()
	d.done <- struct{}{}
}

func (d *recordingDelegate) waitForCallback(t *testing.T) {
	t.Helper()
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delegate callback")
	}
}

// barrier blocks until every diffContext job submitted before this call
// has finished running, by exploiting the fact that diffContext is
// strictly serial: a no-op job queued after them runs only once they
// have.
func barrier[R any](c *Controller[R]) {
	runSync(c.diffContext, func() {})
}

func newTestController(t *testing.T, rowsFn func() []row.Row, tables map[string]bool) (*Controller[rec], *fakeWriter, *recordingDelegate) {
	t.Helper()
	writer := newFakeWriter()
	src := &fakeSource{tables: tables, rowsFn: rowsFn}
	ctrl := New(Config[rec]{
		Source:          src,
		DB:              writer,
		ConsumerContext: ImmediateExecutor{},
		Decode:          decodeRec,
		IdentityBuilder: byRecID,
	})
	delegate := newRecordingDelegate()
	ctrl.SetDelegate(delegate)
	return ctrl, writer, delegate
}

func TestPerformFetchFirstCallPopulatesSnapshotAndAttachesObserver(t *testing.T) {
	rows := []row.Row{mkRow(1, "a"), mkRow(2, "b")}
	ctrl, writer, _ := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})

	_, ok := ctrl.FetchedRecords()
	assert.False(t, ok, "no snapshot before first PerformFetch")

	require.NoError(t, ctrl.PerformFetch(context.Background()))

	records, ok := ctrl.FetchedRecords()
	require.True(t, ok)
	assert.Equal(t, []rec{{1, "a"}, {2, "b"}}, records)
	assert.True(t, ctrl.observing.Load())
	assert.Len(t, writer.observers, 1)
}

func TestControllerDeliversInsertOnCommit(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	ctrl, writer, delegate := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	rows = []row.Row{mkRow(1, "a"), mkRow(2, "b")}
	writer.Commit(context.Background(), "people", "2")
	delegate.waitForCallback(t)

	records, _ := ctrl.FetchedRecords()
	assert.Equal(t, []rec{{1, "a"}, {2, "b"}}, records)

	require.Len(t, delegate.events, 1)
	assert.Equal(t, diffengine.KindInsertion, delegate.events[0].Kind)
	assert.Equal(t, 1, delegate.events[0].IndexPath.Row)
	assert.Equal(t, 1, delegate.willCount)
	assert.Equal(t, 1, delegate.didAllCount)
}

func TestControllerRollbackSuppressesDelegate(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	ctrl, writer, delegate := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	writer.Rollback(context.Background(), "people", "2")
	barrier(ctrl)

	assert.Empty(t, delegate.events)
	assert.Equal(t, 0, delegate.willCount)
}

func TestControllerScopeFilteringSuppressesDelegate(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	ctrl, writer, delegate := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	writer.Commit(context.Background(), "unrelated_table", "9")
	barrier(ctrl)

	assert.Empty(t, delegate.events)
}

func TestControllerOrderingAcrossTransactions(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	ctrl, writer, delegate := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	rows = []row.Row{mkRow(1, "a"), mkRow(2, "b")}
	writer.Commit(context.Background(), "people", "2")
	delegate.waitForCallback(t)
	first, _ := ctrl.FetchedRecords()
	assert.Equal(t, []rec{{1, "a"}, {2, "b"}}, first)

	rows = []row.Row{mkRow(1, "a"), mkRow(2, "b"), mkRow(3, "c")}
	writer.Commit(context.Background(), "people", "3")
	delegate.waitForCallback(t)
	second, _ := ctrl.FetchedRecords()
	assert.Equal(t, []rec{{1, "a"}, {2, "b"}, {3, "c"}}, second)

	require.Len(t, delegate.events, 2)
}

func TestControllerRecordAtPanicsOutOfRange(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	ctrl, _, _ := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	assert.Panics(t, func() {
		ctrl.RecordAt(5)
	})
}

func TestControllerIndexOfWithoutIdentityReturnsFalse(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	writer := newFakeWriter()
	src := &fakeSource{tables: map[string]bool{"people": true}, rowsFn: func() []row.Row { return rows }}
	ctrl := New(Config[rec]{
		Source:          src,
		DB:              writer,
		ConsumerContext: ImmediateExecutor{},
		Decode:          decodeRec,
		// IdentityBuilder left nil: defaults to identity.Never.
	})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	_, ok := ctrl.IndexOf(rec{ID: 1, Name: "a"})
	assert.False(t, ok)
}

func TestControllerFetchErrorSurfacesToErrorDelegate(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	writer := newFakeWriter()
	src := &fakeSource{tables: map[string]bool{"people": true}, rowsFn: func() []row.Row { return rows }}
	ctrl := New(Config[rec]{
		Source:          src,
		DB:              writer,
		ConsumerContext: ImmediateExecutor{},
		Decode:          decodeRec,
		IdentityBuilder: byRecID,
	})
	errDelegate := &erroringDelegate{done: make(chan struct{}, 1)}
	ctrl.SetDelegate(errDelegate)
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	src.err = errors.New("schema changed under the query")
	writer.Commit(context.Background(), "people", "2")

	select {
	case <-errDelegate.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for DidFailWithError")
	}
	require.Error(t, errDelegate.gotErr)
	var fetchErr *FetchError
	assert.ErrorAs(t, errDelegate.gotErr, &fetchErr)
}

type erroringDelegate struct {
	gotErr error
	done   chan struct{}
}

func (d *erroringDelegate) WillChangeRecords(c *Controller[rec])                             {}
func (d *erroringDelegate) DidChangeRecord(c *Controller[rec], record rec, e FetchedRecordsEvent) {}
func (d *erroringDelegate) DidChangeRecords(c *Controller[rec])                               {}
func (d *erroringDelegate) DidFailWithError(err error) {
	d.gotErr = err
	d.done <- struct{}{}
}

func TestControllerPerformFetchResyncsDiffSnapshotOnSubsequentCall(t *testing.T) {
	rows := []row.Row{mkRow(1, "a")}
	ctrl, _, delegate := newTestController(t, func() []row.Row { return rows }, map[string]bool{"people": true})
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	// An external refetch (not a committed transaction) replaces the
	// projection without emitting any event.
	rows = []row.Row{mkRow(1, "a"), mkRow(2, "b"), mkRow(3, "c")}
	require.NoError(t, ctrl.PerformFetch(context.Background()))

	records, _ := ctrl.FetchedRecords()
	assert.Equal(t, []rec{{1, "a"}, {2, "b"}, {3, "c"}}, records)
	assert.Empty(t, delegate.events, "PerformFetch must never itself emit delegate events")

	barrier(ctrl)
	assert.Len(t, ctrl.diffSnapshot, 3, "diffSnapshot must resync to the refetched snapshot, not the stale first one")
}
