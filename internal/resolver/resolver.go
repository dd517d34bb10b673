package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/queryir"
)

// Resolver owns the association-condition scope table of one entity.
//
// All methods are safe for concurrent use.
type Resolver struct {
	view    AssociationView
	vocab   *condition.Vocabulary
	matcher *PatternMatcher
	builder FragmentBuilder
	cache   *FragmentCache
	aliases *AliasResolver
}

// New creates a resolver for entity using vocab. A nil vocab selects
// condition.Default().
func New(entity Entity, vocab *condition.Vocabulary) *Resolver {
	if vocab == nil {
		vocab = condition.Default()
	}
	view := NewAssociationView(entity)
	r := &Resolver{
		view:    view,
		vocab:   vocab,
		matcher: NewPatternMatcher(vocab),
		builder: NewFragmentBuilder(view),
		cache:   NewFragmentCache(entity.Name()),
	}
	r.aliases = NewAliasResolver(r.cache, vocab, r.resolvePrimary)
	return r
}

// Entity returns the entity this resolver serves.
func (r *Resolver) Entity() Entity {
	return r.view.Entity()
}

// Cache exposes the scope table for introspection.
func (r *Resolver) Cache() *FragmentCache {
	return r.cache
}

// Decompose parses name without building anything.
func (r *Resolver) Decompose(name string) (Decomposition, bool) {
	return r.matcher.Match(name, r.view)
}

// Condition reports whether name is a condition this entity answers:
// local, association, or association alias.
func (r *Resolver) Condition(name string) bool {
	if r.Entity().LocallySatisfies(name) {
		return true
	}
	_, ok := r.matcher.Match(name, r.view)
	return ok
}

// Resolve returns the generator for an association condition name.
//
// Returns NO_MATCH when name is local or not an association condition.
// Build failures are returned as RESOLUTION_ERROR or CYCLE_DETECTED and leave
// nothing cached.
func (r *Resolver) Resolve(ctx context.Context, name string) (FragmentGenerator, error) {
	if gen, ok := r.cache.Lookup(name); ok {
		return gen, nil
	}

	d, ok := r.matcher.Match(name, r.view)
	if !ok {
		return nil, NewNoMatchError(r.Entity().Name(), name)
	}

	if d.Alias {
		return r.cache.ResolveOrBuild(ctx, name, func(ctx context.Context) (FragmentGenerator, error) {
			return r.aliases.ResolveAlias(ctx, name, d)
		})
	}
	return r.resolvePrimary(ctx, name, d)
}

// resolvePrimary resolves a primary-form name through the cache.
func (r *Resolver) resolvePrimary(ctx context.Context, name string, d Decomposition) (FragmentGenerator, error) {
	return r.cache.ResolveOrBuild(ctx, name, func(ctx context.Context) (FragmentGenerator, error) {
		return r.build(ctx, name, d)
	})
}

func (r *Resolver) build(ctx context.Context, name string, d Decomposition) (FragmentGenerator, error) {
	entity := r.Entity().Name()

	assoc, ok := r.view.Association(d.Association)
	if !ok {
		return nil, NewResolutionError(entity, name,
			fmt.Sprintf("association %q no longer exists", d.Association), nil)
	}

	sig, err := assoc.Target.FilterSignature(ctx, d.TargetCondition())
	if err != nil {
		if IsCycleError(err) {
			return nil, err
		}
		return nil, NewResolutionError(entity, name,
			fmt.Sprintf("%s cannot satisfy %q", assoc.Target.Name(), d.TargetCondition()), err)
	}

	slog.Debug("resolved association condition",
		"entity", entity,
		"name", name,
		"association", d.Association,
		"target_condition", d.TargetCondition(),
		"arity", sig.Arity.String(),
		"resolution", ResolutionID(ctx))

	return r.builder.Build(ctx, name, d, sig)
}

// PrimaryNameFor returns the canonical name name resolves to. Local names
// are canonicalized by the entity when it implements PrimaryNamer; alias
// names map to their primary form.
func (r *Resolver) PrimaryNameFor(name string) (string, bool) {
	entity := r.Entity()
	if entity.LocallySatisfies(name) {
		if pn, ok := entity.(PrimaryNamer); ok {
			return pn.LocalPrimaryName(name)
		}
		return name, true
	}
	if e, ok := r.cache.Entry(name); ok && e.AliasOf != "" {
		return e.AliasOf, true
	}
	d, ok := r.matcher.Match(name, r.view)
	if !ok {
		return "", false
	}
	if !d.Alias {
		return name, true
	}
	pd, err := r.aliases.PrimaryDecomposition(d)
	if err != nil {
		return "", false
	}
	return pd.Name(), true
}

// InnerJoins returns the join tree for joining a single association.
func (r *Resolver) InnerJoins(association string) (queryir.JoinTree, error) {
	if _, ok := r.view.Association(association); !ok {
		return nil, NewResolutionError(r.Entity().Name(), association, "unknown association", nil)
	}
	return queryir.Leaf(association), nil
}
