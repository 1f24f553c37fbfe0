package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kasuganosora/fetchedrecords/identity"
)

// dialect isolates the three driver-specific behaviors sqldb needs:
// the database/sql driver name, the DSN to hand sql.Open once our own
// scheme prefix is stripped, and the schema-introspection query used by
// TableInfo. Modeled on server/datasource/{postgresql,mysql}'s
// per-dialect GetTableInfoQuery, collapsed here into one query per
// driver since sqldb has a single DSN and no dialect-selection struct
// embedding to do.
type dialect struct {
	driverName string

	// tableInfoQuery returns rows of (column_name, is_primary) for the
	// given table; its single placeholder is the table name.
	tableInfoQuery string
}

var dialects = map[string]dialect{
	"postgres": {
		driverName: "postgres",
		tableInfoQuery: `SELECT c.column_name,
       CASE WHEN kcu.column_name IS NOT NULL THEN true ELSE false END AS is_primary
FROM information_schema.columns c
LEFT JOIN information_schema.table_constraints tc
  ON tc.table_schema = c.table_schema AND tc.table_name = c.table_name AND tc.constraint_type = 'PRIMARY KEY'
LEFT JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema AND kcu.column_name = c.column_name
WHERE c.table_schema = current_schema() AND c.table_name = $1
ORDER BY c.ordinal_position`,
	},
	"mysql": {
		driverName: "mysql",
		tableInfoQuery: `SELECT COLUMN_NAME, COLUMN_KEY = 'PRI'
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`,
	},
	"sqlite": {
		driverName: "sqlite",
		tableInfoQuery: `SELECT name, pk > 0 FROM pragma_table_info(?)`,
	},
}

// parseDSN splits a "scheme:rest" DSN into the dialect it selects and
// the driver-ready DSN to pass to sql.Open.
func parseDSN(dsn string) (dialect, string, error) {
	scheme, rest, ok := strings.Cut(dsn, ":")
	if !ok {
		return dialect{}, "", &ErrUnsupportedScheme{Scheme: dsn}
	}
	d, ok := dialects[scheme]
	if !ok {
		return dialect{}, "", &ErrUnsupportedScheme{Scheme: scheme}
	}
	return d, rest, nil
}

func (d dialect) fetchTableInfo(ctx context.Context, q queryer, table string) (identity.TableInfo, error) {
	rows, err := q.QueryContext(ctx, d.tableInfoQuery, table)
	if err != nil {
		return identity.TableInfo{}, err
	}
	defer rows.Close()

	info := identity.TableInfo{Name: table}
	for rows.Next() {
		var name string
		var primary bool
		if err := rows.Scan(&name, &primary); err != nil {
			return identity.TableInfo{}, err
		}
		info.Columns = append(info.Columns, identity.ColumnInfo{Name: name, Primary: primary})
	}
	if err := rows.Err(); err != nil {
		return identity.TableInfo{}, err
	}
	return info, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx, letting
// fetchTableInfo run either outside or inside a transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
