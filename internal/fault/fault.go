// Package fault defines the error taxonomy shared by the attendance engine.
//
// Every error that crosses a package boundary is a *Error carrying a Kind.
// Callers branch on the kind with the Is* helpers, which use errors.As and
// therefore see through fmt.Errorf("...: %w") wrapping.
package fault

import (
	"errors"
	"fmt"
)

// Kind categorizes a fault.
type Kind string

const (
	// KindHardwareUnavailable means no reader or a transport failure.
	// Recoverable: the next poll tick retries.
	KindHardwareUnavailable Kind = "HARDWARE_UNAVAILABLE"

	// KindCardReadFailed means the UID could not be read after all retries.
	KindCardReadFailed Kind = "CARD_READ_FAILED"

	// KindValidation means bad input to a mutator.
	KindValidation Kind = "VALIDATION"

	// KindStorage means a ledger or registry store failed to load or save.
	KindStorage Kind = "STORAGE"

	// KindRemoteSync means replication to the remote endpoint failed.
	// Only ever logged.
	KindRemoteSync Kind = "REMOTE_SYNC"
)

// Error is a categorized fault.
type Error struct {
	Kind Kind

	// Op names the operation that failed, e.g. "ledger.sign_in".
	Op string

	// Message is a human-readable description. Optional when Err is set.
	Message string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation fault.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Storage wraps a persistence failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// Hardware wraps a reader transport failure.
func Hardware(op string, err error) *Error {
	return &Error{Kind: KindHardwareUnavailable, Op: op, Err: err}
}

// ReadFailed reports a card that stayed unreadable after the given attempts.
func ReadFailed(op string, attempts int, err error) *Error {
	return &Error{
		Kind:    KindCardReadFailed,
		Op:      op,
		Message: fmt.Sprintf("uid unreadable after %d attempts", attempts),
		Err:     err,
	}
}

// RemoteSync wraps a replication failure.
func RemoteSync(op string, err error) *Error {
	return &Error{Kind: KindRemoteSync, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation fault.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsStorage reports whether err is a storage fault.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsHardwareUnavailable reports whether err is a hardware fault.
func IsHardwareUnavailable(err error) bool { return KindOf(err) == KindHardwareUnavailable }

// IsCardReadFailed reports whether err is a card read fault.
func IsCardReadFailed(err error) bool { return KindOf(err) == KindCardReadFailed }

// IsRemoteSync reports whether err is a replication fault.
func IsRemoteSync(err error) bool { return KindOf(err) == KindRemoteSync }
