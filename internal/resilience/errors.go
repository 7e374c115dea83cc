package resilience

import "fmt"

// CircuitOpenError is returned when a call is refused because the circuit
// breaker is open (spec.md §4.3, §7).
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("resilience: circuit %q is open", e.Name)
}

// BulkheadRejectedError is returned when a call is refused because the
// bulkhead's concurrency and queue limits are both exhausted.
type BulkheadRejectedError struct {
	Name       string
	MaxConcurrent int
	MaxQueue      int
}

func (e *BulkheadRejectedError) Error() string {
	return fmt.Sprintf("resilience: bulkhead %q rejected call (max_concurrent=%d, max_queue=%d)", e.Name, e.MaxConcurrent, e.MaxQueue)
}

// TimeoutError is returned when an operation did not complete before its
// configured deadline.
type TimeoutError struct {
	Name     string
	Deadline string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("resilience: operation %q exceeded timeout %s", e.Name, e.Deadline)
}

// TransientError marks an error as safe to retry. Errors that do not
// implement this (or wrap one that does) are treated as permanent by Retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so Retry treats it as transient.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or something it wraps) is marked
// transient.
func IsTransient(err error) bool {
	var t *TransientError
	return asTransient(err, &t)
}

func asTransient(err error, target **TransientError) bool {
	for err != nil {
		if t, ok := err.(*TransientError); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
