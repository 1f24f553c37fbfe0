// Package query implements QuerySource: the uniform handle that turns
// either literal SQL or a query-builder request into a prepared
// Statement, exposing the statement's source tables for the
// transaction observer's scope filtering.
package query

import (
	"context"

	"github.com/kasuganosora/fetchedrecords/row"
)

// Database is the capability a Source needs to bind itself to a live
// connection: running a query and getting rows back. A concrete
// package sqldb.Database implements this alongside txn.Database and
// identity.SchemaProvider over the same *sql.DB.
type Database interface {
	QueryContext(ctx context.Context, sqlText string, args ...any) (Rows, error)
}

// Rows is the minimal cursor capability a Statement needs to drain a
// query result into row.Row values; database/sql.Rows satisfies it
// directly.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Statement is a bound, ready-to-run query: its text/arguments are
// fixed and its source tables are known. Fetch runs it and decodes the
// result into Rows; record materialization from a Row into R is the
// caller's (fetchedrecords.Controller's) job, not the Statement's.
type Statement interface {
	SourceTables() map[string]bool
	Fetch(ctx context.Context, db Database) ([]row.Row, error)
}

// Source is the tagged union described in spec as QuerySource<R>: a
// literal SQL statement (package query) or a query-builder request
// (package gormsource). R parameterizes the record type the eventual
// controller decodes rows into; most Source implementations don't
// inspect R themselves (their Prepare method never mentions it), but
// the type parameter lets a fetchedrecords.Controller[R] require a
// Source[R] at compile time.
type Source[R any] interface {
	Prepare(ctx context.Context, db Database) (Statement, error)
}
