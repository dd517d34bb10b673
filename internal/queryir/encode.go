package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/condscope/internal/ir"
)

// ToCanonicalMap converts a Fragment into plain maps and slices suitable for
// ir.MarshalCanonical.
//
//	{"conditions": {"comments.status": {"op": "equals", "value": "published"}},
//	 "joins": {"comments": {}}}
func (f Fragment) ToCanonicalMap() map[string]any {
	conds := make(map[string]any, len(f.Conditions))
	for col, p := range f.Conditions {
		conds[col.String()] = PredicateToMap(p)
	}
	return map[string]any{
		"conditions": conds,
		"joins":      f.Joins.toMap(),
	}
}

func (t JoinTree) toMap() map[string]any {
	out := make(map[string]any, len(t))
	for k, child := range t {
		out[k] = child.toMap()
	}
	return out
}

// PredicateToMap converts a predicate into a canonical-JSON-ready map.
func PredicateToMap(p Predicate) map[string]any {
	switch pred := p.(type) {
	case Equals:
		return map[string]any{"op": "equals", "value": valueOrNull(pred.Value)}
	case NotEquals:
		return map[string]any{"op": "not_equals", "value": valueOrNull(pred.Value)}
	case Compare:
		return map[string]any{"op": pred.Op, "value": valueOrNull(pred.Value)}
	case Like:
		op := "like"
		if pred.Negate {
			op = "not_like"
		}
		return map[string]any{"op": op, "value": pred.Pattern}
	case IsNull:
		if pred.Negate {
			return map[string]any{"op": "not_null"}
		}
		return map[string]any{"op": "null"}
	case Blank:
		if pred.Negate {
			return map[string]any{"op": "not_blank"}
		}
		return map[string]any{"op": "blank"}
	case In:
		op := "in"
		if pred.Negate {
			op = "not_in"
		}
		vals := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			vals[i] = valueOrNull(v)
		}
		return map[string]any{"op": op, "value": vals}
	case Any:
		return map[string]any{"op": "any", "value": predicatesToList(pred.Predicates)}
	case And:
		return map[string]any{"op": "and", "value": predicatesToList(pred.Predicates)}
	default:
		return map[string]any{"op": fmt.Sprintf("%T", p)}
	}
}

func predicatesToList(preds []Predicate) []any {
	out := make([]any, len(preds))
	for i, p := range preds {
		out[i] = PredicateToMap(p)
	}
	return out
}

// valueOrNull keeps canonical output free of nulls; a null literal is
// rendered as the string "NULL".
func valueOrNull(v ir.IRValue) any {
	if v == nil {
		return "NULL"
	}
	if _, ok := v.(ir.IRNull); ok {
		return "NULL"
	}
	return v
}

// FormatPredicate renders a predicate applied to col for text output.
func FormatPredicate(col Column, p Predicate) string {
	c := col.String()
	switch pred := p.(type) {
	case Equals:
		return fmt.Sprintf("%s = %s", c, ir.Format(pred.Value))
	case NotEquals:
		return fmt.Sprintf("%s != %s", c, ir.Format(pred.Value))
	case Compare:
		return fmt.Sprintf("%s %s %s", c, pred.Op, ir.Format(pred.Value))
	case Like:
		if pred.Negate {
			return fmt.Sprintf("%s NOT LIKE %q", c, pred.Pattern)
		}
		return fmt.Sprintf("%s LIKE %q", c, pred.Pattern)
	case IsNull:
		if pred.Negate {
			return c + " IS NOT NULL"
		}
		return c + " IS NULL"
	case Blank:
		if pred.Negate {
			return c + " IS NOT BLANK"
		}
		return c + " IS BLANK"
	case In:
		vals := make([]string, len(pred.Values))
		for i, v := range pred.Values {
			vals[i] = ir.Format(v)
		}
		op := "IN"
		if pred.Negate {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", c, op, strings.Join(vals, ", "))
	case Any:
		return "(" + joinFormatted(col, pred.Predicates, " OR ") + ")"
	case And:
		return "(" + joinFormatted(col, pred.Predicates, " AND ") + ")"
	default:
		return fmt.Sprintf("%s <%T>", c, p)
	}
}

func joinFormatted(col Column, preds []Predicate, sep string) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = FormatPredicate(col, p)
	}
	return strings.Join(parts, sep)
}
