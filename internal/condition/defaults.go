package condition

import (
	"sync"

	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

var (
	defaultOnce  sync.Once
	defaultVocab *Vocabulary
)

// Default returns the standard vocabulary. The returned value is shared and
// must not be modified; use NewDefault for a private copy.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		defaultVocab = NewDefault()
	})
	return defaultVocab
}

// NewDefault builds a fresh copy of the standard vocabulary.
func NewDefault() *Vocabulary {
	v := NewVocabulary()
	for _, d := range standardKinds {
		if err := v.AddPrimary(d.name, d.arity, d.argType, d.build, d.aliases...); err != nil {
			panic(err) // static table, duplicate names are a programming error
		}
	}
	return v
}

type kindDef struct {
	name    string
	arity   Arity
	argType ArgType
	build   func([]ir.IRValue) (queryir.Predicate, error)
	aliases []string
}

var standardKinds = []kindDef{
	{"equals", Fixed(1), "", equalsPred, []string{"eq", "is"}},
	{"does_not_equal", Fixed(1), "", notEqualsPred, []string{"ne", "not_eq", "is_not", "not"}},
	{"less_than", Fixed(1), "", comparePred(queryir.OpLess), []string{"lt", "before"}},
	{"less_than_or_equal_to", Fixed(1), "", comparePred(queryir.OpLessEqual), []string{"lte"}},
	{"greater_than", Fixed(1), "", comparePred(queryir.OpGreater), []string{"gt", "after"}},
	{"greater_than_or_equal_to", Fixed(1), "", comparePred(queryir.OpGreaterEqual), []string{"gte"}},
	{"like", Fixed(1), ArgText, likePred("%", "%", false), []string{"contains", "includes"}},
	{"not_like", Fixed(1), ArgText, likePred("%", "%", true), []string{"does_not_include"}},
	{"begins_with", Fixed(1), ArgText, likePred("", "%", false), []string{"bw", "starts_with"}},
	{"not_begin_with", Fixed(1), ArgText, likePred("", "%", true), nil},
	{"ends_with", Fixed(1), ArgText, likePred("%", "", false), []string{"ew"}},
	{"not_end_with", Fixed(1), ArgText, likePred("%", "", true), nil},
	{"null", Zero(), "", constPred(queryir.IsNull{}), []string{"nil"}},
	{"not_null", Zero(), "", constPred(queryir.IsNull{Negate: true}), []string{"not_nil"}},
	{"blank", Zero(), "", constPred(queryir.Blank{}), []string{"empty"}},
	{"not_blank", Zero(), "", constPred(queryir.Blank{Negate: true}), []string{"present"}},
	{"equals_any", Variadic(1), "", inPred(false), []string{"eq_any", "in"}},
	{"does_not_equal_all", Variadic(1), "", inPred(true), []string{"not_in"}},
	{"like_any", Variadic(1), ArgText, likeAnyPred("%", "%"), []string{"contains_any"}},
	{"begins_with_any", Variadic(1), ArgText, likeAnyPred("", "%"), []string{"bw_any"}},
}

func equalsPred(args []ir.IRValue) (queryir.Predicate, error) {
	return queryir.Equals{Value: args[0]}, nil
}

func notEqualsPred(args []ir.IRValue) (queryir.Predicate, error) {
	return queryir.NotEquals{Value: args[0]}, nil
}

func comparePred(op string) func([]ir.IRValue) (queryir.Predicate, error) {
	return func(args []ir.IRValue) (queryir.Predicate, error) {
		return queryir.Compare{Op: op, Value: args[0]}, nil
	}
}

func likePred(prefix, suffix string, negate bool) func([]ir.IRValue) (queryir.Predicate, error) {
	return func(args []ir.IRValue) (queryir.Predicate, error) {
		return queryir.Like{Pattern: prefix + text(args[0]) + suffix, Negate: negate}, nil
	}
}

func constPred(p queryir.Predicate) func([]ir.IRValue) (queryir.Predicate, error) {
	return func([]ir.IRValue) (queryir.Predicate, error) {
		return p, nil
	}
}

func inPred(negate bool) func([]ir.IRValue) (queryir.Predicate, error) {
	return func(args []ir.IRValue) (queryir.Predicate, error) {
		return queryir.In{Values: flatten(args), Negate: negate}, nil
	}
}

func likeAnyPred(prefix, suffix string) func([]ir.IRValue) (queryir.Predicate, error) {
	return func(args []ir.IRValue) (queryir.Predicate, error) {
		vals := flatten(args)
		preds := make([]queryir.Predicate, len(vals))
		for i, v := range vals {
			preds[i] = queryir.Like{Pattern: prefix + text(v) + suffix}
		}
		return queryir.Any{Predicates: preds}, nil
	}
}

// flatten expands a single array argument into its elements, so
// equals_any(["a", "b"]) and equals_any("a", "b") build the same predicate.
func flatten(args []ir.IRValue) []ir.IRValue {
	var out []ir.IRValue
	for _, a := range args {
		if arr, ok := a.(ir.IRArray); ok {
			out = append(out, arr...)
			continue
		}
		out = append(out, a)
	}
	return out
}

func text(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return string(s)
	}
	return ir.Format(v)
}
