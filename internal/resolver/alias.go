package resolver

import (
	"context"
	"fmt"

	"github.com/roach88/condscope/internal/condition"
)

// AliasResolver makes alias-form names (comments_votes_gt) share the
// generator of their primary form (comments_votes_greater_than).
type AliasResolver struct {
	cache   *FragmentCache
	vocab   *condition.Vocabulary
	primary func(ctx context.Context, name string, d Decomposition) (FragmentGenerator, error)
}

// NewAliasResolver creates an alias resolver. primary resolves a primary
// name through the cache, building it on demand.
func NewAliasResolver(cache *FragmentCache, vocab *condition.Vocabulary, primary func(ctx context.Context, name string, d Decomposition) (FragmentGenerator, error)) *AliasResolver {
	return &AliasResolver{cache: cache, vocab: vocab, primary: primary}
}

// PrimaryDecomposition rewrites an alias decomposition to its primary form.
func (a *AliasResolver) PrimaryDecomposition(d Decomposition) (Decomposition, error) {
	primary, ok := a.vocab.PrimaryOf(d.Condition)
	if !ok {
		return Decomposition{}, fmt.Errorf("unknown condition %q", d.Condition)
	}
	d.Condition = primary
	d.Alias = false
	return d, nil
}

// ResolveAlias resolves the primary name first, building it if it has not
// been resolved yet, then registers name as the very same generator with
// AliasOf set to the primary name.
func (a *AliasResolver) ResolveAlias(ctx context.Context, name string, d Decomposition) (FragmentGenerator, error) {
	pd, err := a.PrimaryDecomposition(d)
	if err != nil {
		return nil, NewResolutionError(a.cache.label, name, "alias has no primary condition", err)
	}
	primaryName := pd.Name()

	gen, err := a.primary(ctx, primaryName, pd)
	if err != nil {
		return nil, err
	}
	return a.cache.Register(name, gen, primaryName), nil
}
