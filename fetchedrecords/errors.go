package fetchedrecords

import "fmt"

// ConfigurationError is raised synchronously from PerformFetch when the
// source statement cannot be prepared (malformed SQL, argument/
// placeholder arity mismatch). The controller remains unattached.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("fetchedrecords: configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err as a ConfigurationError.
func NewConfigurationError(reason string, err error) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Err: err}
}

// FetchError is logged, and reported through
// ErrorDelegate.DidFailWithError when the delegate implements it, when a
// commit-time refetch fails. It never propagates into the database's
// commit machinery; the pending transaction is dropped and the next
// commit retries.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetchedrecords: fetch error: %s", e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err as a FetchError.
func NewFetchError(reason string, err error) *FetchError {
	return &FetchError{Reason: reason, Err: err}
}

// ProgrammerError marks a contract violation: out-of-range access,
// reading the controller before its first PerformFetch, or any other
// caller mistake that is not a recoverable runtime condition.
type ProgrammerError struct {
	Reason string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("fetchedrecords: programmer error: %s", e.Reason)
}

// NewProgrammerError builds a ProgrammerError with the given reason.
func NewProgrammerError(reason string) *ProgrammerError {
	return &ProgrammerError{Reason: reason}
}
