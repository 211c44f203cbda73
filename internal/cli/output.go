package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/upload"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Negative outcome (invalid events, declined overwrite, failed verification)
	ExitCommandError = 2 // Command error (bad credentials, unreadable input, failed write, etc.)
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConnection   = "E002" // Session could not be established
	ErrCodeValidation   = "E003" // Event failed validation
	ErrCodeParse        = "E004" // Malformed input or stored data
	ErrCodeNotFound     = "E005" // Source not found
	ErrCodeRead         = "E006" // Store read failed
	ErrCodeWrite        = "E007" // Store or file write failed
	ErrCodeConflict     = "E008" // Document changed concurrently
	ErrCodeAborted      = "E009" // Operator declined overwrite
	ErrCodeVerification = "E010" // Post-upload verification failed
	ErrCodeConfig       = "E011" // Invalid environment configuration
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	reported bool // already written through an OutputFormatter
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an
// ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Reported reports whether err was already written to the command's
// output, so the caller need not print it again.
func Reported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.reported
}

// codeForKind maps an error kind to its CLI error code.
func codeForKind(kind errs.Kind) string {
	switch kind {
	case errs.KindConnection:
		return ErrCodeConnection
	case errs.KindValidation:
		return ErrCodeValidation
	case errs.KindParse:
		return ErrCodeParse
	case errs.KindNotFound:
		return ErrCodeNotFound
	case errs.KindRead:
		return ErrCodeRead
	case errs.KindWrite:
		return ErrCodeWrite
	case errs.KindConflict:
		return ErrCodeConflict
	case errs.KindUserAborted:
		return ErrCodeAborted
	default:
		return ErrCodeGeneric
	}
}

// exitCodeForKind separates negative outcomes (exit 1) from failures to
// carry out the command (exit 2).
func exitCodeForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation, errs.KindUserAborted, errs.KindUnknown:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// errorDetails extracts structured details for the error envelope.
func errorDetails(err error) interface{} {
	var cerr *upload.CollectionError
	if errors.As(err, &cerr) {
		return cerr.Report
	}
	var verr *event.ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}

// fail reports err through the formatter and returns the matching
// ExitError.
func fail(formatter *OutputFormatter, err error) error {
	kind := errs.KindOf(err)
	code := codeForKind(kind)
	_ = formatter.Error(code, err.Error(), errorDetails(err))
	exitErr := WrapExitError(exitCodeForKind(kind), code, err)
	exitErr.reported = true
	return exitErr
}
// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer // results and errors
	Log     io.Writer // progress lines; Writer when nil
	Verbose bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // command result, also on partial failure
	Error  *CLIError   `json:"error,omitempty"` // set when Status is "error"
}

// CLIError is the error part of the envelope.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // validation report or violations
}

// Error writes an error without a result.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	f.writeError(code, message, details)
	return nil
}

func (f *OutputFormatter) writeError(code, message string, details interface{}) {
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if !f.Verbose {
		return
	}
	switch d := details.(type) {
	case *upload.Report:
		for _, failure := range d.Failures {
			for _, v := range failure.Violations {
				fmt.Fprintf(f.Writer, "  %s[%d] %s\n", failure.Partition, failure.Index, v)
			}
		}
	case []event.Violation:
		for _, v := range d {
			fmt.Fprintf(f.Writer, "  %s\n", v)
		}
	}
}

// VerboseLog writes a progress line when verbose output is on.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.Log
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// emit writes data in the configured format. A non-nil problem marks the
// response as an error and is returned, so a command can print its
// result and still exit non-zero.
func emit(f *OutputFormatter, data interface{}, text func(w io.Writer), problem *ExitError) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: data}
		if problem != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: problem.Message, Message: errorMessage(problem), Details: errorDetails(problem.Err)}
		}
		if err := json.NewEncoder(f.Writer).Encode(resp); err != nil {
			return err
		}
	} else {
		text(f.Writer)
		if problem != nil {
			f.writeError(problem.Message, errorMessage(problem), errorDetails(problem.Err))
		}
	}
	if problem != nil {
		problem.reported = true
		return problem
	}
	return nil
}

func errorMessage(e *ExitError) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}
