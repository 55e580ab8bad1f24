package portfolio

import (
	"errors"
	"fmt"
)

// ErrInsufficientHoldings is returned when a SELL asks for more units than
// the user currently holds. No writes are issued.
var ErrInsufficientHoldings = errors.New("insufficient units held")

// ValidationError rejects a malformed transaction request before any state
// is read or written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid transaction: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StoreUnavailableError wraps a transient store failure. The caller may
// retry the whole request; the client_ref idempotency key keeps an ambiguous
// failure from double-applying.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
