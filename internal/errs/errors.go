// Package errs defines the error kinds shared by the store, catalog and
// upload packages.
//
// Every failure that crosses a package boundary carries a Kind so callers
// (the CLI in particular) can tell a validation failure from a write
// failure without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes an error.
type Kind string

const (
	// KindUnknown is reported for errors that carry no kind.
	KindUnknown Kind = "unknown"

	// KindConnection indicates a session could not be established or is
	// not established. Fatal for the current session.
	KindConnection Kind = "connection"

	// KindValidation indicates a record failed schema rules.
	KindValidation Kind = "validation"

	// KindParse indicates malformed external input or stored data.
	KindParse Kind = "parse"

	// KindNotFound indicates a referenced source is absent.
	KindNotFound Kind = "not_found"

	// KindRead indicates the remote read call failed.
	KindRead Kind = "read"

	// KindWrite indicates the remote write call failed.
	KindWrite Kind = "write"

	// KindConflict indicates the document changed between read and write.
	KindConflict Kind = "conflict"

	// KindUserAborted indicates the operator declined an overwrite.
	// This is a negative outcome, not a malfunction.
	KindUserAborted Kind = "user_aborted"
)

// Error is a failure with a Kind and the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string // e.g. "read territory_events"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// kinded is implemented by error types that live outside this package
// (e.g. event.ValidationError) but still report a Kind.
type kinded interface {
	Kind() Kind
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error around an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first kinded error in err's chain.
// Returns KindUnknown for nil or unkinded errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsConnection reports whether err is a connection error.
func IsConnection(err error) bool { return Is(err, KindConnection) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return Is(err, KindValidation) }

// IsParse reports whether err is a parse error.
func IsParse(err error) bool { return Is(err, KindParse) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsWrite reports whether err is a write error.
func IsWrite(err error) bool { return Is(err, KindWrite) }

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool { return Is(err, KindConflict) }

// IsUserAborted reports whether err represents a declined confirmation.
func IsUserAborted(err error) bool { return Is(err, KindUserAborted) }
