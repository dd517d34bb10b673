package resolver

import (
	"context"
	"fmt"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/queryir"
)

// FragmentBuilder builds generators for decomposed names.
type FragmentBuilder struct {
	view AssociationView
}

// NewFragmentBuilder creates a builder reading associations through view.
func NewFragmentBuilder(view AssociationView) FragmentBuilder {
	return FragmentBuilder{view: view}
}

// Build produces the generator for d, given the signature of the target
// filter it delegates to.
//
// Zero arity invokes the target filter once and stores the rewritten
// fragment. Any other arity returns a generator that invokes the target on
// demand. A missing association or a target filter that cannot be invoked
// is a RESOLUTION_ERROR; cycle errors pass through untouched.
func (b FragmentBuilder) Build(ctx context.Context, name string, d Decomposition, sig condition.Signature) (FragmentGenerator, error) {
	entity := b.view.Entity().Name()

	assoc, ok := b.view.Association(d.Association)
	if !ok {
		return nil, NewResolutionError(entity, name,
			fmt.Sprintf("association %q no longer exists", d.Association), nil)
	}
	if sig.ArgType == "" {
		sig.ArgType = condition.ArgText
	}

	if sig.Arity.IsZero() {
		native, err := assoc.Target.InvokeFilter(ctx, d.TargetCondition(), nil)
		if err != nil {
			if IsCycleError(err) {
				return nil, err
			}
			return nil, NewResolutionError(entity, name,
				fmt.Sprintf("%s cannot satisfy %q", assoc.Target.Name(), d.TargetCondition()), err)
		}
		return &StaticFragment{name: name, fragment: nestUnder(assoc.Name, native), signature: sig}, nil
	}

	return &ParameterizedFragment{
		name:        name,
		association: assoc.Name,
		target:      assoc.Target,
		condition:   d.TargetCondition(),
		signature:   sig,
	}, nil
}

// nestUnder rewrites a target's native fragment for use from the owning
// entity: the read-only marker is dropped, the conditions are copied, and
// the joins are placed under assoc. No joins become a leaf join on assoc;
// existing joins nest one level down instead of being discarded.
func nestUnder(assoc string, native queryir.NativeFragment) queryir.Fragment {
	return queryir.Fragment{
		Conditions: native.Conditions.Clone(),
		Joins:      native.Joins.Nest(assoc),
	}
}
