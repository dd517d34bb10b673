package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Field    string     // Expectation field that failed
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Event    TraceEvent // Step event for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  Step: [%d] %s.%s -> %s", e.Event.Step, e.Event.Entity, e.Event.Filter, e.Event.Outcome)
	if e.Event.Message != "" {
		fmt.Fprintf(&buf, " (%s)", e.Event.Message)
	}

	return buf.String()
}

// checkExpectation compares an event against an expect clause and returns
// one message per mismatch.
func checkExpectation(event TraceEvent, expect Expectation) []string {
	var errs []string
	fail := func(field, expected, actual string) {
		err := &AssertionError{Field: field, Expected: expected, Actual: actual, Event: event}
		errs = append(errs, err.Error())
	}

	wantOutcome := OutcomeOK
	if expect.Error != "" {
		wantOutcome = expect.Error
	}
	if event.Outcome != wantOutcome {
		fail("outcome", wantOutcome, event.Outcome)
		// Remaining fields are meaningless once the outcome differs
		return errs
	}
	if event.Outcome != OutcomeOK {
		return errs
	}

	if expect.Primary != "" && event.Primary != expect.Primary {
		fail("primary", expect.Primary, event.Primary)
	}
	if expect.Arity != "" && event.Arity != expect.Arity {
		fail("arity", expect.Arity, event.Arity)
	}
	if expect.Joins != "" && event.Joins != expect.Joins {
		fail("joins", expect.Joins, event.Joins)
	}
	if expect.IDs != nil && !slices.Equal(event.IDs, expect.IDs) {
		fail("ids", fmt.Sprint(expect.IDs), fmt.Sprint(event.IDs))
	}
	if expect.Count != nil && event.Count != *expect.Count {
		fail("count", fmt.Sprint(*expect.Count), fmt.Sprint(event.Count))
	}

	return errs
}
