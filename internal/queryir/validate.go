package queryir

import (
	"fmt"

	"github.com/roach88/condscope/internal/ir"
)

// ValidationResult contains the analysis of a fragment.
//
// A fragment with warnings is still usable; warnings flag constructs a
// backend will treat specially or reject (empty IN lists, unknown compare
// operators, equality against NULL).
type ValidationResult struct {
	// IsValid indicates the fragment uses only well-formed predicates.
	IsValid bool

	// Warnings lists problems found, in column order.
	Warnings []string
}

// Validate checks a fragment's conditions and join tree.
//
// Rules:
//  1. Every condition column has a name
//  2. Equality uses IsNull, never a NULL literal
//  3. Compare operators are one of < <= > >=
//  4. In lists and Any/And groups are non-empty
//  5. Join tree keys are non-empty association names
//
// Validate is a pure function with no side effects.
func Validate(f Fragment) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	for _, col := range f.Conditions.Columns() {
		if col.Name == "" {
			v.addWarning("condition on %q has an empty column name", col.String())
		}
		v.validatePredicate(col, f.Conditions[col])
	}
	v.validateJoins(nil, f.Joins)

	return ValidationResult{
		IsValid:  len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validatePredicate(col Column, p Predicate) {
	if p == nil {
		v.addWarning("nil predicate on %s", col)
		return
	}

	switch pred := p.(type) {
	case Equals:
		if isNull(pred.Value) {
			v.addWarning("%s compared to NULL with equals - use IsNull", col)
		}
	case NotEquals:
		if isNull(pred.Value) {
			v.addWarning("%s compared to NULL with not_equals - use IsNull{Negate: true}", col)
		}
	case Compare:
		if !ValidCompareOps[pred.Op] {
			v.addWarning("%s uses unknown compare operator %q", col, pred.Op)
		}
		if isNull(pred.Value) {
			v.addWarning("%s ordered against NULL", col)
		}
	case Like, IsNull, Blank:
		// Always well-formed
	case In:
		if len(pred.Values) == 0 {
			v.addWarning("%s has an empty IN list", col)
		}
	case Any:
		if len(pred.Predicates) == 0 {
			v.addWarning("%s has an empty OR group", col)
		}
		for _, sub := range pred.Predicates {
			v.validatePredicate(col, sub)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(col, sub)
		}
	default:
		v.addWarning("unknown predicate type %T on %s", p, col)
	}
}

func (v *validator) validateJoins(prefix []string, t JoinTree) {
	for _, k := range t.Keys() {
		if k == "" {
			v.addWarning("empty association name in join tree under %v", prefix)
			continue
		}
		v.validateJoins(append(prefix, k), t[k])
	}
}

func isNull(v ir.IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(ir.IRNull)
	return ok
}
