package store

import "errors"

// Sentinel errors returned by Store operations, matching engine
// specification §4.1.
var (
	// ErrConflict is returned by InsertExecution when the id already exists.
	ErrConflict = errors.New("store: execution already exists")

	// ErrIllegalTransition indicates store misuse: a caller attempted a
	// transition the current row state does not permit. It halts the
	// calling operation rather than being retried.
	ErrIllegalTransition = errors.New("store: illegal status transition")

	// ErrNotFound is returned when an operation targets a row that does
	// not exist (or does not match the expected status).
	ErrNotFound = errors.New("store: execution not found")

	// ErrSignalNotFound is returned when a workflow references a signal
	// name that has no pending, unconsumed delivery.
	ErrSignalNotFound = errors.New("store: no matching signal")
)
