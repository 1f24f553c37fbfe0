package exporter

import "fmt"

// ErrMissingRowValues reports that a Config was built without a
// RowValues function, so the delegate has no way to turn a record into
// a worksheet row.
type ErrMissingRowValues struct{}

func (e *ErrMissingRowValues) Error() string {
	return "exporter: Config.RowValues is required"
}

// ErrSheetRewriteFailed wraps an excelize failure encountered while
// rewriting the mirrored worksheet.
type ErrSheetRewriteFailed struct {
	Reason string
	Err    error
}

func (e *ErrSheetRewriteFailed) Error() string {
	return fmt.Sprintf("exporter: sheet rewrite failed: %s", e.Reason)
}

func (e *ErrSheetRewriteFailed) Unwrap() error { return e.Err }
