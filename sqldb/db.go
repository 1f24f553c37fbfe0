// Package sqldb is a concrete txn.DatabaseWriter/query.Database/
// identity.SchemaProvider over database/sql, selecting a driver by DSN
// scheme and serializing write jobs through a single mutex so every
// transaction is observed strictly in commit order, matching
// server/datasource/sql.SQLCommonDataSource's Connect/pool-configure
// shape and mysql/mvcc.Manager's single-writer-lock discipline.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/kasuganosora/fetchedrecords/identity"
	"github.com/kasuganosora/fetchedrecords/query"
	"github.com/kasuganosora/fetchedrecords/txn"
)

// DB is a txn.DatabaseWriter. All writes run under db.mu, giving the
// writer context the spec requires: transaction observer hooks always
// fire strictly serially relative to one another and to Write's own
// completion.
type DB struct {
	raw     *sql.DB
	dialect dialect

	mu        sync.Mutex
	observers []txn.Observer

	logger *zap.Logger
}

// Open dials dsn (e.g. "sqlite:file::memory:?cache=shared",
// "postgres:host=localhost dbname=app", "mysql:user:pass@tcp(host)/db"),
// configures the pool per cfg, and verifies connectivity.
func Open(ctx context.Context, dsn string, cfg PoolConfig, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d, driverDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	raw, err := sql.Open(d.driverName, driverDSN)
	if err != nil {
		return nil, NewErrConnectionFailed(d.driverName, err.Error())
	}

	raw.SetMaxOpenConns(cfg.MaxOpenConns)
	raw.SetMaxIdleConns(cfg.MaxIdleConns)
	raw.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	raw.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := raw.PingContext(pingCtx); err != nil {
		raw.Close()
		return nil, NewErrConnectionFailed(d.driverName, err.Error())
	}

	return &DB{raw: raw, dialect: d, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.raw.Close()
}

// QueryContext implements query.Database, running outside of any write
// transaction. It is what OnCommit's refetch reads through; a
// controller's PerformFetch runs inside Write and reads through Conn.
func (db *DB) QueryContext(ctx context.Context, sqlText string, args ...any) (query.Rows, error) {
	return db.raw.QueryContext(ctx, sqlText, args...)
}

// TableInfo implements identity.SchemaProvider via the dialect's schema
// introspection query.
func (db *DB) TableInfo(table string) (identity.TableInfo, error) {
	return db.dialect.fetchTableInfo(context.Background(), db.raw, table)
}

// AddTransactionObserver implements txn.DatabaseWriter.
func (db *DB) AddTransactionObserver(o txn.Observer) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.observers = append(db.observers, o)
}

// Write implements txn.DatabaseWriter. job runs inside a *sql.Tx wrapped
// as a Conn, which tracks every table touched by a statement executed
// through Conn.ExecContext (classified via query.ExtractTables, the
// same TiDB-parser table scan package query uses for source tables).
// On success, OnRowChange fires once per touched table, then
// OnWillCommit, then the commit, then OnCommit; on failure or a commit
// error, OnRollback fires instead. All hooks run while db.mu is held,
// so two Write calls never interleave their observer notifications.
func (db *DB) Write(ctx context.Context, job func(db txn.Database) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	sqlTx, err := db.raw.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: begin transaction: %w", err)
	}

	conn := &Conn{tx: sqlTx, dialect: db.dialect, touched: make(map[string]bool)}

	if err := job(conn); err != nil {
		_ = sqlTx.Rollback()
		db.notifyRollback()
		return err
	}

	for table := range conn.touched {
		db.notifyRowChange(table)
	}
	db.notifyWillCommit()

	if err := sqlTx.Commit(); err != nil {
		db.notifyRollback()
		return fmt.Errorf("sqldb: commit transaction: %w", err)
	}

	db.notifyCommit(ctx)
	return nil
}

func (db *DB) notifyRowChange(table string) {
	for _, o := range db.observers {
		o.OnRowChange(txn.RowChangeEvent{Table: table})
	}
}

func (db *DB) notifyWillCommit() {
	for _, o := range db.observers {
		o.OnWillCommit()
	}
}

func (db *DB) notifyRollback() {
	for _, o := range db.observers {
		o.OnRollback()
	}
	db.logger.Debug("transaction rolled back")
}

func (db *DB) notifyCommit(ctx context.Context) {
	for _, o := range db.observers {
		o.OnCommit(ctx, db)
	}
}

// Conn is the txn.Database handle a Write job receives: reads and
// writes run against the transaction in progress, and ExecContext
// additionally records which tables the job touched.
type Conn struct {
	tx      *sql.Tx
	dialect dialect
	touched map[string]bool
}

// QueryContext implements query.Database, reading within the open
// transaction (so a job can read back its own uncommitted writes).
func (c *Conn) QueryContext(ctx context.Context, sqlText string, args ...any) (query.Rows, error) {
	return c.tx.QueryContext(ctx, sqlText, args...)
}

// TableInfo implements identity.SchemaProvider within the transaction.
func (c *Conn) TableInfo(table string) (identity.TableInfo, error) {
	return c.dialect.fetchTableInfo(context.Background(), c.tx, table)
}

// ExecContext runs a mutating statement and classifies the tables it
// touches via query.ExtractTables, so the enclosing Write call knows
// which observers to notify. A statement the parser cannot classify
// (e.g. a vendor-specific DDL extension) is executed but contributes no
// table to the touched set — callers relying on commit notification for
// such statements should name tables explicitly with MarkTouched.
func (c *Conn) ExecContext(ctx context.Context, sqlText string, args ...any) (sql.Result, error) {
	if tables, err := query.ExtractTables(sqlText); err == nil {
		for table := range tables {
			c.touched[table] = true
		}
	}
	return c.tx.ExecContext(ctx, sqlText, args...)
}

// MarkTouched records table as touched by the current job without
// requiring a parseable statement, for callers that mutate a table
// through means query.ExtractTables cannot see (e.g. a stored
// procedure call).
func (c *Conn) MarkTouched(table string) {
	c.touched[table] = true
}

var (
	_ txn.Database = (*DB)(nil)
	_ txn.Database = (*Conn)(nil)
)
