package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/condscope/internal/resolver"
	"github.com/roach88/condscope/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Filter or scenario failure (no match, arity mismatch, failed expectations)
	ExitCommandError = 2 // Command error (invalid paths, unknown entity, broken schema)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeLoadFailed    = "E004" // Schema could not be read or compiled
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeInvalidSchema = "E006" // Schema failed validation
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeUnknownEntity = "E010" // Entity not declared in the schema
	ErrCodeBadArgument   = "E011" // Argument could not be parsed
	ErrCodeNoMatch       = "E020" // Name is not a filter on the entity
	ErrCodeResolution    = "E021" // Association condition could not be built
	ErrCodeArity         = "E022" // Wrong number of arguments
	ErrCodeCycle         = "E023" // Resolution recursively requires itself
	ErrCodeQueryFailed   = "E030" // SQL compilation or execution failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CommandError is a failure a command reports with a specific code.
type CommandError struct {
	Code    string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ErrorCode maps an error to its CLI error code. Resolution errors keep
// their category; a cycle anywhere in the chain is reported as a cycle.
func ErrorCode(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	if resolver.IsCycleError(err) {
		return ErrCodeCycle
	}
	switch {
	case resolver.IsNoMatch(err):
		return ErrCodeNoMatch
	case resolver.IsArityMismatch(err):
		return ErrCodeArity
	case resolver.IsResolutionError(err):
		return ErrCodeResolution
	}
	var invalid *schema.InvalidSchemaError
	if errors.As(err, &invalid) {
		return ErrCodeInvalidSchema
	}
	return ErrCodeGeneric
}

// exitCodeFor separates filter failures from command errors.
func exitCodeFor(code string) int {
	switch code {
	case ErrCodeNoMatch, ErrCodeResolution, ErrCodeArity, ErrCodeCycle:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E020", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text
// output uses the value's String method when it has one.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through Error and returns the ExitError the command
// should return. details may be nil.
func (f *OutputFormatter) Fail(err error, details any) error {
	code := ErrorCode(err)
	if outErr := f.Error(code, err.Error(), details); outErr != nil {
		return outErr
	}
	return WrapExitError(exitCodeFor(code), code, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
