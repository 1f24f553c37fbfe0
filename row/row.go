// Package row implements the immutable Row value and the lazily
// materialized Item that pairs a row with its decoded record.
package row

// Row is an ordered column-name-to-value mapping, copyable so that a
// value fetched from a statement cursor survives the cursor's reuse or
// release. Column order is preserved; two Rows are equal iff they have
// the same columns, in the same order, with equal values.
type Row struct {
	columns []string
	values  []any
}

// New builds a Row from parallel columns/values slices, taking a
// defensive copy of both. The source data may be backed by a statement
// cursor that is reused or freed after this call returns.
func New(columns []string, values []any) Row {
	cols := make([]string, len(columns))
	copy(cols, columns)
	vals := make([]any, len(values))
	copy(vals, values)
	return Row{columns: cols, values: vals}
}

// FromMap builds a Row from an unordered map plus an explicit column
// order. Columns not present in the map are stored as nil.
func FromMap(order []string, m map[string]any) Row {
	values := make([]any, len(order))
	for i, c := range order {
		values[i] = m[c]
	}
	return New(order, values)
}

// Columns returns a copy of the row's column names, in order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// Get returns the value of the named column and whether it exists.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// At returns the column name and value at a positional index.
func (r Row) At(i int) (column string, value any) {
	return r.columns[i], r.values[i]
}

// Map returns the row as a plain map, discarding column order.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// SameColumnSet reports whether r and other expose the same set of
// column names, irrespective of order. The diff engine's standardize
// pass requires this before it will compute a column-wise diff between
// two matched rows.
func (r Row) SameColumnSet(other Row) bool {
	if len(r.columns) != len(other.columns) {
		return false
	}
	for _, c := range r.columns {
		if _, ok := other.Get(c); !ok {
			return false
		}
	}
	return true
}

// Equal reports value-equality: same columns, same order, same values.
func (r Row) Equal(other Row) bool {
	if len(r.columns) != len(other.columns) {
		return false
	}
	for i := range r.columns {
		if r.columns[i] != other.columns[i] {
			return false
		}
		if !valueEqual(r.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

// ChangedColumns returns the set of columns whose values differ between
// r (treated as the "new" row) and old, mapped to old's value. Columns
// present in both with equal values are omitted. The caller must check
// SameColumnSet first; behavior on mismatched column sets is to compare
// only the columns old carries, which callers must not rely on (the
// diffengine package never calls this without a SameColumnSet check).
func (r Row) ChangedColumns(old Row) map[string]any {
	changed := make(map[string]any)
	for _, c := range old.columns {
		oldVal, _ := old.Get(c)
		newVal, ok := r.Get(c)
		if !ok || !valueEqual(oldVal, newVal) {
			changed[c] = oldVal
		}
	}
	return changed
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, aok := a.([]byte)
	bv, bok := b.([]byte)
	if aok || bok {
		if !aok || !bok {
			return false
		}
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
