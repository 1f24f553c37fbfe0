// Package gormsource implements QuerySource's "Request" variant: a
// query built with GORM's chainable query builder instead of literal
// SQL text, illustrated by spec's left-joined request example. It
// turns the builder chain into bound SQL via GORM's dry-run session,
// then reuses package query's statement machinery for table extraction
// and row fetching.
package gormsource

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kasuganosora/fetchedrecords/query"
	"github.com/kasuganosora/fetchedrecords/row"
)

// Database adapts a *gorm.DB so it can serve both as the target of a
// Source's query-builder chain and as a query.Database, letting a
// controller mix gormsource.Source and query.SQLSource against the
// same connection.
type Database struct {
	DB *gorm.DB
}

// QueryContext implements query.Database over GORM's raw-SQL execution
// path; *sql.Rows returned by GORM already satisfies query.Rows.
func (d *Database) QueryContext(ctx context.Context, sqlText string, args ...any) (query.Rows, error) {
	rows, err := d.DB.WithContext(ctx).Raw(sqlText, args...).Rows()
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Source is the "Request { query }" variant of QuerySource: build is
// handed a dry-run *gorm.DB session scoped to model R and returns the
// fully-built chain (joins, where clauses, ordering, ...); Prepare
// executes nothing, it only asks GORM to render the resulting SQL.
type Source[R any] struct {
	build func(*gorm.DB) *gorm.DB
}

// New builds a Source from a GORM query-builder function.
func New[R any](build func(*gorm.DB) *gorm.DB) *Source[R] {
	return &Source[R]{build: build}
}

// Prepare renders build's query via GORM's DryRun session (per GORM's
// own db.Session(&gorm.Session{DryRun: true}) idiom: the statement is
// built and its SQL captured, but never executed), extracts its source
// tables the same way package query does for literal SQL, and returns
// a Statement that executes for real on Fetch.
func (s *Source[R]) Prepare(ctx context.Context, db query.Database) (query.Statement, error) {
	gdb, ok := db.(*Database)
	if !ok {
		return nil, query.NewErrConfiguration("<gorm request>", fmt.Sprintf("gormsource.Source requires a *gormsource.Database, got %T", db))
	}

	var model R
	session := gdb.DB.WithContext(ctx).Session(&gorm.Session{DryRun: true})
	built := s.build(session.Model(&model))
	built = built.Find(&[]R{})
	if built.Error != nil {
		return nil, query.NewErrConfiguration("<gorm request>", built.Error.Error())
	}

	text := built.Statement.SQL.String()
	args := built.Statement.Vars

	tables, err := query.ExtractTables(text)
	if err != nil {
		return nil, query.NewErrConfiguration(text, err.Error())
	}

	return &statement{text: text, args: args, tables: tables}, nil
}

type statement struct {
	text   string
	args   []any
	tables map[string]bool
}

func (s *statement) SourceTables() map[string]bool {
	out := make(map[string]bool, len(s.tables))
	for t := range s.tables {
		out[t] = true
	}
	return out
}

func (s *statement) Fetch(ctx context.Context, db query.Database) ([]row.Row, error) {
	return query.FetchRows(ctx, db, s.text, s.args)
}
