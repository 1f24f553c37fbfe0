package query

import (
	"context"
	"fmt"
	"strings"

	tidbparser "github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/kasuganosora/fetchedrecords/row"
)

// SQLSource is the "Sql { text, arguments }" variant of QuerySource: a
// literal statement bound to a fixed argument list. It carries no
// record type of its own — its Prepare method never mentions R — so a
// single SQLSource value satisfies Source[R] for any R.
type SQLSource struct {
	text string
	args []any
}

// SQL builds a literal-SQL source. args are positional bind values for
// the statement's "?" placeholders.
func SQL(text string, args ...any) *SQLSource {
	return &SQLSource{text: text, args: args}
}

// Prepare validates the statement's placeholder arity, extracts its
// source tables via the SQL AST, and returns a bound Statement. db is
// accepted to satisfy the uniform Source[R] interface; the SQL variant
// does not otherwise need a live connection to prepare itself.
func (s *SQLSource) Prepare(ctx context.Context, db Database) (Statement, error) {
	wantArgs := strings.Count(s.text, "?")
	if wantArgs != len(s.args) {
		return nil, NewErrConfiguration(s.text, fmt.Sprintf("statement has %d placeholders, got %d arguments", wantArgs, len(s.args)))
	}

	tables, err := ExtractTables(s.text)
	if err != nil {
		return nil, NewErrConfiguration(s.text, err.Error())
	}

	return &sqlStatement{text: s.text, args: s.args, tables: tables}, nil
}

// sqlStatement is the bound Statement produced by SQLSource.Prepare.
type sqlStatement struct {
	text   string
	args   []any
	tables map[string]bool
}

func (s *sqlStatement) SourceTables() map[string]bool {
	out := make(map[string]bool, len(s.tables))
	for t := range s.tables {
		out[t] = true
	}
	return out
}

func (s *sqlStatement) Fetch(ctx context.Context, db Database) ([]row.Row, error) {
	return FetchRows(ctx, db, s.text, s.args)
}

// FetchRows runs sqlText with args against db and decodes the result
// into row.Row values. It is exported so other Source implementations
// (package gormsource's dry-run-built statements) can reuse the same
// column-scanning logic instead of reimplementing it.
func FetchRows(ctx context.Context, db Database, sqlText string, args []any) ([]row.Row, error) {
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, NewErrFetch(sqlText, err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, NewErrFetch(sqlText, err.Error())
	}

	var out []row.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, NewErrFetch(sqlText, err.Error())
		}
		out = append(out, row.New(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, NewErrFetch(sqlText, err.Error())
	}
	return out, nil
}

// ExtractTables parses sqlText and returns the set of tables it
// references, following pkg/parser/parser.go's Parser.ParseOneStmt and
// pkg/parser/visitor.go's TableVisitor.
func ExtractTables(sqlText string) (map[string]bool, error) {
	stmt, err := parseOneStatement(sqlText)
	if err != nil {
		return nil, err
	}
	tables := make(map[string]bool)
	stmt.Accept(&tableVisitor{tables: tables})
	return tables, nil
}

// parseOneStatement parses sqlText and returns its single top-level
// statement node, following pkg/parser.Parser.ParseOneStmt's contract.
func parseOneStatement(sqlText string) (ast.StmtNode, error) {
	p := tidbparser.New()
	stmts, warns, err := p.ParseSQL(sqlText)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		_ = w // parser warnings are non-fatal and are discarded
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("no statement parsed")
	}
	return stmts[0], nil
}

// tableVisitor walks a parsed statement collecting every referenced
// table name, following pkg/parser/visitor.go's TableVisitor.
type tableVisitor struct {
	tables map[string]bool
}

func (v *tableVisitor) Enter(n ast.Node) (ast.Node, bool) {
	if t, ok := n.(*ast.TableName); ok {
		if name := t.Name.String(); name != "" {
			v.tables[name] = true
		}
	}
	return n, false
}

func (v *tableVisitor) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}
