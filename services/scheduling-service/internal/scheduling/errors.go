package scheduling

import "fmt"

// ValidationError reports malformed input. It is never retried and maps
// to a 4xx response with the offending field attached.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports that a referenced entity does not exist within
// the tenant scope.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports an overlapping booking. ConflictingID names the
// colliding appointment when known so callers can surface it; nothing
// is auto-resolved.
type ConflictError struct {
	ConflictingID string
}

func (e *ConflictError) Error() string {
	if e.ConflictingID == "" {
		return "time slot already booked"
	}
	return fmt.Sprintf("time slot already booked by appointment %s", e.ConflictingID)
}

// CacheError is non-fatal: it is logged inside the engine and never
// surfaced to callers, who transparently fall back to the store path.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// StoreError reports a failed store operation. It is retryable from the
// caller's perspective; the engine performs no internal retries.
type StoreError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *StoreError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("store %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable distinguishes transient store failures from the
// caller-addressable error kinds.
func (e *StoreError) Retryable() bool { return true }
