// Package exporter mirrors a controller's projection into a .xlsx
// workbook, grounded on excel.ExcelAdapter's writeBack: delete the
// sheet, recreate it, write the header row, then one row per record.
package exporter

import (
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kasuganosora/fetchedrecords/fetchedrecords"
)

// Config configures an XLSXDelegate.
type Config[R any] struct {
	// SheetName is the worksheet the delegate mirrors into. Defaults to
	// "Sheet1" (excelize's default sheet in a new workbook).
	SheetName string

	// Columns names the header row, left to right.
	Columns []string

	// RowValues converts a record into the values for Columns, in the
	// same order. A value beyond len(Columns) is ignored; a row shorter
	// than Columns leaves the remaining cells unset.
	RowValues func(record R) []any

	Logger *zap.Logger
}

// XLSXDelegate is a fetchedrecords.Delegate that keeps an in-memory
// excelize workbook in sync with a controller's projection, rewriting
// the mirrored sheet once per DidChangeRecords call (i.e. once per
// committed transaction that produced a non-empty edit script).
type XLSXDelegate[R any] struct {
	sheet     string
	columns   []string
	rowValues func(R) []any
	logger    *zap.Logger

	mu   sync.Mutex
	file *excelize.File
}

// NewXLSXDelegate builds an XLSXDelegate backed by a fresh, empty
// workbook with the header row already written.
func NewXLSXDelegate[R any](cfg Config[R]) (*XLSXDelegate[R], error) {
	if cfg.RowValues == nil {
		return nil, &ErrMissingRowValues{}
	}

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	file := excelize.NewFile()
	if sheet != "Sheet1" {
		if _, err := file.NewSheet(sheet); err != nil {
			return nil, &ErrSheetRewriteFailed{Reason: "create sheet", Err: err}
		}
		if err := file.DeleteSheet("Sheet1"); err != nil {
			return nil, &ErrSheetRewriteFailed{Reason: "delete default sheet", Err: err}
		}
	}

	d := &XLSXDelegate[R]{
		sheet:     sheet,
		columns:   cfg.Columns,
		rowValues: cfg.RowValues,
		logger:    logger,
		file:      file,
	}
	d.writeHeader()
	return d, nil
}

func (d *XLSXDelegate[R]) writeHeader() {
	for i, col := range d.columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		d.file.SetCellValue(d.sheet, cell, col)
	}
}

// WillChangeRecords implements fetchedrecords.Delegate. The sheet is
// rewritten wholesale in DidChangeRecords, so there is nothing to do
// before the script starts applying.
func (d *XLSXDelegate[R]) WillChangeRecords(c *fetchedrecords.Controller[R]) {}

// DidChangeRecord implements fetchedrecords.Delegate, logging each
// event at debug level. The sheet mutation itself happens once, in
// DidChangeRecords, rather than incrementally per event.
func (d *XLSXDelegate[R]) DidChangeRecord(c *fetchedrecords.Controller[R], record R, event fetchedrecords.FetchedRecordsEvent) {
	d.logger.Debug("record changed",
		zap.Stringer("kind", event.Kind),
		zap.Int("row", event.IndexPath.Row),
		zap.Int("newRow", event.NewIndexPath.Row),
	)
}

// DidChangeRecords implements fetchedrecords.Delegate, rewriting the
// mirrored sheet from the controller's post-script projection.
func (d *XLSXDelegate[R]) DidChangeRecords(c *fetchedrecords.Controller[R]) {
	records, ok := c.FetchedRecords()
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rewrite(records); err != nil {
		d.logger.Error("rewrite sheet", zap.Error(err))
	}
}

func (d *XLSXDelegate[R]) rewrite(records []R) error {
	previous, err := d.file.GetRows(d.sheet)
	if err != nil {
		return &ErrSheetRewriteFailed{Reason: "read sheet", Err: err}
	}
	if err := d.file.DeleteSheet(d.sheet); err != nil {
		return &ErrSheetRewriteFailed{Reason: "delete sheet", Err: err}
	}
	idx, err := d.file.NewSheet(d.sheet)
	if err != nil {
		return &ErrSheetRewriteFailed{Reason: "recreate sheet", Err: err}
	}
	d.file.SetActiveSheet(idx)
	d.writeHeader()

	for i, record := range records {
		rowNum := i + 2
		values := d.rowValues(record)
		for j := range d.columns {
			if j >= len(values) {
				break
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			d.file.SetCellValue(d.sheet, cell, values[j])
		}
	}

	// excelize's DeleteSheet leaves a workbook's only sheet in place, so
	// rows past the new projection's end are removed explicitly.
	for r := len(previous); r > len(records)+1; r-- {
		if err := d.file.RemoveRow(d.sheet, r); err != nil {
			return &ErrSheetRewriteFailed{Reason: "remove stale row", Err: err}
		}
	}
	return nil
}

// Rows returns the mirrored sheet's current rows, header included, the
// same shape excelize.File.GetRows returns.
func (d *XLSXDelegate[R]) Rows() ([][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.GetRows(d.sheet)
}

// SaveAs writes the workbook to path.
func (d *XLSXDelegate[R]) SaveAs(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.SaveAs(path)
}

// Close releases the workbook's underlying resources.
func (d *XLSXDelegate[R]) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

var _ fetchedrecords.Delegate[struct{}] = (*XLSXDelegate[struct{}])(nil)
