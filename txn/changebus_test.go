package txn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeBusPutFiresCommitObserver(t *testing.T) {
	bus, err := NewChangeBus()
	require.NoError(t, err)
	defer bus.Close()

	commits := 0
	tr := NewTableScopeTracker(map[string]bool{"accounts": true}, RefetchConfig{
		Refetch: func(ctx context.Context, db Database) (any, error) {
			commits++
			return nil, nil
		},
		OnItems: func(newItems any) {},
	})
	bus.AddTransactionObserver(tr)

	require.NoError(t, bus.Put(context.Background(), "accounts", "1", []byte("alice")))
	assert.Equal(t, 1, commits)

	// A write to an out-of-scope table must not trigger a refetch.
	require.NoError(t, bus.Put(context.Background(), "unrelated", "1", []byte("x")))
	assert.Equal(t, 1, commits)
}

func TestChangeBusDeleteAlsoFiresRowChange(t *testing.T) {
	bus, err := NewChangeBus()
	require.NoError(t, err)
	defer bus.Close()

	require.NoError(t, bus.Put(context.Background(), "accounts", "1", []byte("alice")))

	var seen []RowChangeEvent
	recorder := &recordingObserver{}
	bus.AddTransactionObserver(recorder)

	require.NoError(t, bus.Delete(context.Background(), "accounts", "1"))
	seen = recorder.events
	require.Len(t, seen, 1)
	assert.Equal(t, "accounts", seen[0].Table)
	assert.Equal(t, "1", seen[0].Key)
	assert.True(t, recorder.committed)
}

type recordingObserver struct {
	events    []RowChangeEvent
	committed bool
}

func (r *recordingObserver) OnRowChange(event RowChangeEvent) { r.events = append(r.events, event) }
func (r *recordingObserver) OnWillCommit()                    {}
func (r *recordingObserver) OnRollback()                      { r.committed = false }
func (r *recordingObserver) OnCommit(ctx context.Context, db Database) {
	r.committed = true
}
