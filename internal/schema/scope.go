package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
	"github.com/roach88/condscope/internal/resolver"
)

// scopeFrame records a delegating scope in progress. Delegation that
// returns to a scope already on the chain without passing through a
// resolver cache would otherwise recurse forever.
type scopeFrame struct {
	parent *scopeFrame
	entity string
	scope  string
}

type scopeFrameKey struct{}

func (f *scopeFrame) contains(entity, scope string) bool {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.entity == entity && cur.scope == scope {
			return true
		}
	}
	return false
}

func (f *scopeFrame) path() []string {
	var rev []string
	for cur := f; cur != nil; cur = cur.parent {
		rev = append(rev, cur.entity+"."+cur.scope)
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// enterScope pushes s onto the delegation chain carried by ctx.
func (e *Entity) enterScope(ctx context.Context, s ir.ScopeSpec) (context.Context, error) {
	parent, _ := ctx.Value(scopeFrameKey{}).(*scopeFrame)
	if parent.contains(e.Name(), s.Name) {
		path := append(parent.path(), e.Name()+"."+s.Name)
		return ctx, resolver.NewCycleError(e.Name(), s.Name, path)
	}
	return context.WithValue(ctx, scopeFrameKey{}, &scopeFrame{parent: parent, entity: e.Name(), scope: s.Name}), nil
}

// prepareDelegate resolves the filter a delegating scope forwards to, so
// association conditions it names are registered before any generator built
// on the scope is invoked.
func (e *Entity) prepareDelegate(ctx context.Context, s ir.ScopeSpec) error {
	ctx, err := e.enterScope(ctx, s)
	if err != nil {
		return err
	}
	_, err = e.FilterSignature(ctx, s.Filter)
	return err
}

// invokeScope builds a scope's native fragment. The result is marked
// read-only.
func (e *Entity) invokeScope(ctx context.Context, s ir.ScopeSpec, args []ir.IRValue) (queryir.NativeFragment, error) {
	sig := scopeSignature(s)
	if !sig.Arity.Accepts(len(args)) {
		return queryir.NativeFragment{}, resolver.NewArityError(s.Name, sig.Arity, len(args))
	}

	joins := queryir.JoinTree{}
	for _, j := range s.Joins {
		joins = joins.Merge(queryir.Leaf(j))
	}

	if s.Filter != "" {
		ctx, err := e.enterScope(ctx, s)
		if err != nil {
			return queryir.NativeFragment{}, err
		}

		slog.Debug("delegating scope",
			"entity", e.Name(),
			"scope", s.Name,
			"filter", s.Filter,
			"resolution", resolver.ResolutionID(ctx))

		native, err := e.InvokeFilter(ctx, s.Filter, args)
		if err != nil {
			return queryir.NativeFragment{}, err
		}
		return queryir.NativeFragment{
			Conditions: native.Conditions.Clone(),
			Joins:      native.Joins.Merge(joins),
			ReadOnly:   true,
		}, nil
	}

	conds := queryir.Conditions{}
	for i, w := range s.Where {
		kind, ok := e.vocab.Lookup(w.Condition)
		if !ok {
			return queryir.NativeFragment{}, fmt.Errorf("%s.%s where[%d]: unknown condition %q", e.Name(), s.Name, i, w.Condition)
		}

		var kargs []ir.IRValue
		switch {
		case w.Arg != nil && sig.Arity.Kind == condition.ArityVariadic && *w.Arg >= sig.Arity.N:
			// The splat position collects every remaining argument.
			if *w.Arg > len(args) {
				return queryir.NativeFragment{}, fmt.Errorf("%s.%s where[%d]: arg %d not supplied", e.Name(), s.Name, i, *w.Arg)
			}
			kargs = []ir.IRValue{ir.IRArray(args[*w.Arg:])}
		case w.Arg != nil:
			if *w.Arg >= len(args) {
				return queryir.NativeFragment{}, fmt.Errorf("%s.%s where[%d]: arg %d not supplied", e.Name(), s.Name, i, *w.Arg)
			}
			kargs = []ir.IRValue{args[*w.Arg]}
		case !kind.Arity.IsZero():
			v := w.Value
			if v == nil {
				v = ir.IRNull{}
			}
			kargs = []ir.IRValue{v}
		}

		pred, err := kind.Predicate(kargs)
		if err != nil {
			return queryir.NativeFragment{}, fmt.Errorf("%s.%s where[%d]: %w", e.Name(), s.Name, i, err)
		}
		conds = conds.Merge(queryir.Conditions{queryir.Col(e.Table(), w.Column): pred})
	}

	return queryir.NativeFragment{Conditions: conds, Joins: joins, ReadOnly: true}, nil
}
