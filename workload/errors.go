/*
errors.go - Error types for the distribution engine

ERROR CATEGORIES:
  1. Planning errors - no eligible workers, bad parameters
  2. Store errors - read/write failures propagated from the store
  3. Apply errors - a destination group failed after others were applied
  4. History errors - logged only, never returned from a trigger

PARTIAL APPLICATION:
  A write failure in one destination group is NOT rolled back. Callers must
  treat any error from a trigger as "some or all of the plan may not have
  been applied". ApplyError carries how many items had already moved.

SEE ALSO:
  - applier.go: Produces ApplyError
  - audit.go: Swallows ErrHistoryWrite after logging it
*/
package workload

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoEligibleWorkers is returned when the roster is empty after
	// excluding the triggering worker. No plan is applied.
	ErrNoEligibleWorkers = errors.New("no eligible workers")

	// ErrStoreRead wraps every failed store read.
	ErrStoreRead = errors.New("store read failed")

	// ErrStoreWrite wraps every failed store write.
	ErrStoreWrite = errors.New("store write failed")

	// ErrHistoryWrite marks a failed audit append. Non-fatal.
	ErrHistoryWrite = errors.New("history write failed")

	// ErrWorkerNotFound is returned when a trigger names an unknown worker.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrInvalidFraction is returned for a skim fraction outside (0, 1].
	ErrInvalidFraction = errors.New("skim fraction must be in (0, 1]")

	// ErrUnknownPolicy is returned by Plan for an unrecognized policy.
	ErrUnknownPolicy = errors.New("unknown distribution policy")

	// ErrEmptyImport is returned when an import batch has no cases.
	ErrEmptyImport = errors.New("import batch is empty")

	// ErrDuplicateCase is returned when an import batch names a case twice.
	ErrDuplicateCase = errors.New("case repeated in import batch")

	// ErrCaseAssigned is returned when an imported case already has an
	// active assignment. A case holds at most one.
	ErrCaseAssigned = errors.New("case already has an active assignment")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StoreError wraps a store failure with the operation that caused it.
// errors.Is matches both Kind (ErrStoreRead/ErrStoreWrite) and the cause.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func readErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Kind: ErrStoreRead, Err: err}
}

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Kind: ErrStoreWrite, Err: err}
}

// ApplyError reports a destination group that failed. Applied counts the
// items already moved by other groups before the failure surfaced.
type ApplyError struct {
	Worker  WorkerID
	Applied int
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply to %s failed after %d items moved: %v", e.Worker, e.Applied, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFraction) ||
		errors.Is(err, ErrUnknownPolicy) ||
		errors.Is(err, ErrEmptyImport) ||
		errors.Is(err, ErrDuplicateCase)
}

// IsConflict returns true if the request clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNoEligibleWorkers) ||
		errors.Is(err, ErrCaseAssigned)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound)
}
