package identity

// TableInfo mirrors the subset of a database's schema introspection the
// by-primary-key identity builder needs: the table's columns and which
// of them form the primary key.
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
}

// ColumnInfo describes one column of a TableInfo.
type ColumnInfo struct {
	Name    string
	Primary bool
}

// PrimaryKeyColumns returns the names of t's primary-key columns, in
// declaration order.
func (t TableInfo) PrimaryKeyColumns() []string {
	var cols []string
	for _, c := range t.Columns {
		if c.Primary {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// SchemaProvider is the minimal database capability the by-primary-key
// identity builder requires: looking up a table's schema. A concrete
// Database (see package sqldb) implements this by querying
// information_schema (postgres, mysql) or pragma_table_info (sqlite).
type SchemaProvider interface {
	TableInfo(table string) (TableInfo, error)
}

// RowAccessor is implemented by a record type R that can expose itself
// as a row of named column values, so ByPrimaryKey can compare the
// primary-key columns' values without the caller writing a bespoke
// comparator. This mirrors the "row-convertible record adopting a
// persistable capability" mentioned in spec §4.C.
type RowAccessor interface {
	ColumnValue(column string) (any, bool)
}

// ByPrimaryKey builds a Func[R] from db's schema: it looks up table's
// primary-key columns and compares records by those columns' values.
// This must run at performFetch time (it needs db), never earlier —
// the identityBuilder closure held by fetchedrecords.Controller defers
// exactly this call.
func ByPrimaryKey[R RowAccessor](db SchemaProvider, table string) (Func[R], error) {
	info, err := db.TableInfo(table)
	if err != nil {
		return nil, err
	}
	pk := info.PrimaryKeyColumns()
	if len(pk) == 0 {
		return Never[R](), nil
	}
	return func(a, b R) bool {
		for _, col := range pk {
			av, aok := a.ColumnValue(col)
			bv, bok := b.ColumnValue(col)
			if aok != bok || av != bv {
				return false
			}
		}
		return true
	}, nil
}
