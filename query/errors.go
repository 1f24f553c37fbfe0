package query

import "fmt"

// ErrConfiguration reports malformed SQL or arguments that do not match
// the statement's placeholder arity. Raised synchronously from
// Source.Prepare (and, transitively, from performFetch); the caller's
// controller is left unattached.
type ErrConfiguration struct {
	SQL    string
	Reason string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("invalid query source %q: %s", e.SQL, e.Reason)
}

// NewErrConfiguration builds an ErrConfiguration.
func NewErrConfiguration(sql, reason string) *ErrConfiguration {
	return &ErrConfiguration{SQL: sql, Reason: reason}
}

// ErrFetch reports a failure fetching rows for an already-prepared
// Statement, whether during the initial performFetch or a commit-time
// refetch.
type ErrFetch struct {
	SQL    string
	Reason string
}

func (e *ErrFetch) Error() string {
	return fmt.Sprintf("fetch failed for %q: %s", e.SQL, e.Reason)
}

// NewErrFetch builds an ErrFetch.
func NewErrFetch(sql, reason string) *ErrFetch {
	return &ErrFetch{SQL: sql, Reason: reason}
}
