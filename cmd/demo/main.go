// Command demo wires a Controller to a sqlite-backed sqldb.DB, mutates
// rows across a few transactions, and prints the edit script each
// commit produces.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/kasuganosora/fetchedrecords/fetchedrecords"
	"github.com/kasuganosora/fetchedrecords/query"
	"github.com/kasuganosora/fetchedrecords/row"
	"github.com/kasuganosora/fetchedrecords/sqldb"
	"github.com/kasuganosora/fetchedrecords/txn"
)

type item struct {
	ID   int
	Name string
	Qty  int
}

func (it item) ColumnValue(column string) (any, bool) {
	switch column {
	case "id":
		return it.ID, true
	case "name":
		return it.Name, true
	case "qty":
		return it.Qty, true
	default:
		return nil, false
	}
}

func decodeItem(r row.Row) item {
	id, _ := r.Get("id")
	name, _ := r.Get("name")
	qty, _ := r.Get("qty")
	return item{ID: int(id.(int64)), Name: name.(string), Qty: int(qty.(int64))}
}

type printingDelegate struct{}

func (printingDelegate) WillChangeRecords(c *fetchedrecords.Controller[item]) {
	fmt.Println("-- begin edit script --")
}

func (printingDelegate) DidChangeRecord(c *fetchedrecords.Controller[item], record item, event fetchedrecords.FetchedRecordsEvent) {
	switch event.Kind.String() {
	case "insertion":
		fmt.Printf("  insert at %d: %+v\n", event.IndexPath.Row, record)
	case "deletion":
		fmt.Printf("  delete at %d: %+v\n", event.IndexPath.Row, record)
	case "move":
		fmt.Printf("  move %d -> %d: %+v (changed %v)\n", event.IndexPath.Row, event.NewIndexPath.Row, record, event.ChangedColumns)
	case "update":
		fmt.Printf("  update at %d: %+v (changed %v)\n", event.IndexPath.Row, record, event.ChangedColumns)
	}
}

func (printingDelegate) DidChangeRecords(c *fetchedrecords.Controller[item]) {
	fmt.Println("-- end edit script --")
}

func (printingDelegate) DidFailWithError(err error) {
	fmt.Println("refetch error:", err)
}

func main() {
	ctx := context.Background()

	db, err := sqldb.Open(ctx, "sqlite:file::memory:?cache=shared&_pragma=busy_timeout(5000)", sqldb.DefaultPoolConfig(), nil)
	if err != nil {
		log.Fatal("open database:", err)
	}
	defer db.Close()

	seed(ctx, db)

	ctrl := fetchedrecords.New(fetchedrecords.Config[item]{
		Source:          query.SQL("SELECT id, name, qty FROM items ORDER BY id"),
		DB:              db,
		ConsumerContext: fetchedrecords.ImmediateExecutor{},
		Decode:          decodeItem,
		IdentityBuilder: fetchedrecords.IdentityByPrimaryKey[item]("items"),
	})
	ctrl.SetDelegate(printingDelegate{})

	if err := ctrl.PerformFetch(ctx); err != nil {
		log.Fatal("initial fetch:", err)
	}

	records, _ := ctrl.FetchedRecords()
	fmt.Println("initial projection:", records)

	mustWrite(ctx, db, "INSERT INTO items (id, name, qty) VALUES (4, 'widget', 10)")
	mustWrite(ctx, db, "UPDATE items SET qty = 99 WHERE id = 1")
	mustWrite(ctx, db, "DELETE FROM items WHERE id = 2")

	records, _ = ctrl.FetchedRecords()
	fmt.Println("final projection:", records)

	ctrl.Close()
}

func seed(ctx context.Context, db *sqldb.DB) {
	err := db.Write(ctx, func(dbConn txn.Database) error {
		conn := dbConn.(*sqldb.Conn)
		if _, err := conn.ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, qty INTEGER)"); err != nil {
			return err
		}
		for _, seedRow := range [][3]any{{1, "apple", 5}, {2, "banana", 3}, {3, "cherry", 7}} {
			if _, err := conn.ExecContext(ctx, "INSERT INTO items (id, name, qty) VALUES (?, ?, ?)", seedRow[0], seedRow[1], seedRow[2]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("seed:", err)
	}
}

func mustWrite(ctx context.Context, db *sqldb.DB, sqlText string, args ...any) {
	err := db.Write(ctx, func(dbConn txn.Database) error {
		conn := dbConn.(*sqldb.Conn)
		_, err := conn.ExecContext(ctx, sqlText, args...)
		return err
	})
	if err != nil {
		log.Fatalf("write %q: %v", sqlText, err)
	}
}
