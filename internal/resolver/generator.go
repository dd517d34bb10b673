package resolver

import (
	"context"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

// FragmentGenerator produces the Fragment for a resolved name.
//
// This is a sealed interface with two variants: *StaticFragment for
// zero-arity filters and *ParameterizedFragment for everything else.
// Generators are immutable once built and safe for concurrent Invoke.
type FragmentGenerator interface {
	// Name is the canonical (primary) name the generator was built for.
	Name() string

	// Signature declares arity and the advisory argument type.
	Signature() condition.Signature

	// Invoke returns a fresh Fragment. Callers own the result.
	Invoke(ctx context.Context, args []ir.IRValue) (queryir.Fragment, error)

	generatorNode() // Marker method - seals interface to this package
}

// StaticFragment is a precomputed fragment for a zero-arity filter.
type StaticFragment struct {
	name      string
	fragment  queryir.Fragment
	signature condition.Signature
}

func (*StaticFragment) generatorNode() {}

// Name implements FragmentGenerator.
func (s *StaticFragment) Name() string { return s.name }

// Signature implements FragmentGenerator. The arity is always Zero; the
// argument type is the target's.
func (s *StaticFragment) Signature() condition.Signature { return s.signature }

// Fragment returns a copy of the precomputed fragment.
func (s *StaticFragment) Fragment() queryir.Fragment {
	return queryir.Fragment{
		Conditions: s.fragment.Conditions.Clone(),
		Joins:      s.fragment.Joins.Clone(),
	}
}

// Invoke implements FragmentGenerator. Any argument is an arity mismatch.
func (s *StaticFragment) Invoke(_ context.Context, args []ir.IRValue) (queryir.Fragment, error) {
	if len(args) != 0 {
		return queryir.Fragment{}, NewArityError(s.name, condition.Zero(), len(args))
	}
	return s.Fragment(), nil
}

// ParameterizedFragment re-derives its fragment from the association
// target's filter on every invocation.
type ParameterizedFragment struct {
	name        string
	association string
	target      Entity
	condition   string
	signature   condition.Signature
}

func (*ParameterizedFragment) generatorNode() {}

// Name implements FragmentGenerator.
func (p *ParameterizedFragment) Name() string { return p.name }

// Signature implements FragmentGenerator.
func (p *ParameterizedFragment) Signature() condition.Signature { return p.signature }

// Association returns the association the fragment joins through.
func (p *ParameterizedFragment) Association() string { return p.association }

// TargetCondition returns the filter invoked on the association target.
func (p *ParameterizedFragment) TargetCondition() string { return p.condition }

// Invoke implements FragmentGenerator.
//
// The argument count is checked before anything else; a mismatch returns
// ARITY_MISMATCH and builds nothing. Each call starts from the target's
// native fragment, so calls share no state.
func (p *ParameterizedFragment) Invoke(ctx context.Context, args []ir.IRValue) (queryir.Fragment, error) {
	if !p.signature.Arity.Accepts(len(args)) {
		return queryir.Fragment{}, NewArityError(p.name, p.signature.Arity, len(args))
	}
	native, err := p.target.InvokeFilter(ctx, p.condition, args)
	if err != nil {
		return queryir.Fragment{}, err
	}
	return nestUnder(p.association, native), nil
}
