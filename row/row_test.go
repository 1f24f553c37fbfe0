package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowEqual(t *testing.T) {
	tests := []struct {
		name string
		a    Row
		b    Row
		want bool
	}{
		{
			name: "identical",
			a:    New([]string{"id", "name"}, []any{1, "a"}),
			b:    New([]string{"id", "name"}, []any{1, "a"}),
			want: true,
		},
		{
			name: "different value",
			a:    New([]string{"id", "name"}, []any{1, "a"}),
			b:    New([]string{"id", "name"}, []any{1, "b"}),
			want: false,
		},
		{
			name: "different column order",
			a:    New([]string{"id", "name"}, []any{1, "a"}),
			b:    New([]string{"name", "id"}, []any{"a", 1}),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equal(tc.b))
		})
	}
}

func TestRowChangedColumns(t *testing.T) {
	oldRow := New([]string{"id", "name", "age"}, []any{1, "a", 30})
	newRow := New([]string{"id", "name", "age"}, []any{1, "A", 30})

	require.True(t, newRow.SameColumnSet(oldRow))

	changed := newRow.ChangedColumns(oldRow)
	assert.Equal(t, map[string]any{"name": "a"}, changed)
}

func TestItemRecordMaterializesOnce(t *testing.T) {
	calls := 0
	it := NewItem(New([]string{"id"}, []any{1}), func(r Row) int {
		calls++
		v, _ := r.Get("id")
		return v.(int)
	}, nil)

	assert.Equal(t, 1, it.Record())
	assert.Equal(t, 1, it.Record())
	assert.Equal(t, 1, calls)
}

func TestItemEqualByRowOnly(t *testing.T) {
	a := NewItem(New([]string{"id"}, []any{1}), func(r Row) int { return 1 }, nil)
	b := NewItem(New([]string{"id"}, []any{1}), func(r Row) int { return 2 }, nil)
	assert.True(t, a.Equal(b))
}
