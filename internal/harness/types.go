package harness

import (
	"github.com/roach88/condscope/internal/ir"
)

// OutcomeOK is the outcome recorded for a step that resolved and executed.
const OutcomeOK = "ok"

// TraceEvent records what happened for one scenario step.
// Outcome is OutcomeOK or the error code the step failed with; the
// remaining result fields are only populated on success.
type TraceEvent struct {
	Step     int            `json:"step"`
	Entity   string         `json:"entity"`
	Filter   string         `json:"filter"`
	Args     []ir.IRValue   `json:"args,omitempty"`
	Outcome  string         `json:"outcome"`
	Message  string         `json:"message,omitempty"`
	Primary  string         `json:"primary,omitempty"`
	Arity    string         `json:"arity,omitempty"`
	Joins    string         `json:"joins,omitempty"`
	Fragment map[string]any `json:"fragment,omitempty"`
	IDs      []int64        `json:"ids,omitempty"`
	Count    int64          `json:"count"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause matched.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Resolutions is how many top-level resolutions the scenario started.
	Resolutions int `json:"resolutions"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
