package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/condscope/internal/condition"
)

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeNoMatch indicates the name is not an association condition.
	// Recoverable: callers fall back to their own dispatch.
	ErrCodeNoMatch ErrorCode = "NO_MATCH"

	// ErrCodeResolution indicates the decomposition referenced an association
	// or target filter that is absent or incompatible at build time.
	ErrCodeResolution ErrorCode = "RESOLUTION_ERROR"

	// ErrCodeArityMismatch indicates a generator was invoked with an argument
	// count outside its arity.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// ErrCodeCycleDetected indicates a resolution recursively required itself.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
)

// Error represents a failure to resolve or invoke a named filter.
//
// Error includes structured fields for diagnostics; match on Code through
// the Is* helpers, which see through wrapping.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Entity is the entity whose scope table was being resolved.
	Entity string

	// Name is the filter name being resolved or invoked.
	Name string

	// Path lists entity.name hops for cycle errors, first to last.
	Path []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Entity != "" && e.Name != "" {
		fmt.Fprintf(&b, " (%s.%s)", e.Entity, e.Name)
	} else if e.Name != "" {
		fmt.Fprintf(&b, " (%s)", e.Name)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Path, " -> "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNoMatch returns true if the error is a no-match error.
func IsNoMatch(err error) bool { return hasCode(err, ErrCodeNoMatch) }

// IsResolutionError returns true if the error is a build-time resolution error.
func IsResolutionError(err error) bool { return hasCode(err, ErrCodeResolution) }

// IsArityMismatch returns true if the error is an arity mismatch.
func IsArityMismatch(err error) bool { return hasCode(err, ErrCodeArityMismatch) }

// IsCycleError returns true if the error is a cycle detection error.
// A cycle wrapped inside a resolution error still reports true.
func IsCycleError(err error) bool {
	for err != nil {
		var re *Error
		if !errors.As(err, &re) {
			return false
		}
		if re.Code == ErrCodeCycleDetected {
			return true
		}
		err = re.Err
	}
	return false
}

// NewNoMatchError creates an Error for an unmatched name.
func NewNoMatchError(entity, name string) *Error {
	return &Error{
		Code:    ErrCodeNoMatch,
		Message: "name is not an association condition",
		Entity:  entity,
		Name:    name,
	}
}

// NewResolutionError creates an Error for a failed build.
func NewResolutionError(entity, name, message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeResolution,
		Message: message,
		Entity:  entity,
		Name:    name,
		Err:     cause,
	}
}

// NewArityError creates an Error for an invocation with the wrong number of
// arguments.
func NewArityError(name string, arity condition.Arity, got int) *Error {
	return &Error{
		Code:    ErrCodeArityMismatch,
		Message: fmt.Sprintf("expected %s arguments, got %d", arity, got),
		Name:    name,
	}
}

// NewCycleError creates an Error for a resolution that requires itself.
func NewCycleError(entity, name string, path []string) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: "resolution recursively requires itself",
		Entity:  entity,
		Name:    name,
		Path:    path,
	}
}
