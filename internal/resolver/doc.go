// Package resolver turns naming-convention filter names such as
// comments_author_name_contains into reusable query fragments.
//
// ARCHITECTURE:
//
//	name → PatternMatcher → Decomposition → FragmentBuilder → FragmentGenerator
//	                   ↘ alias pass → AliasResolver ↗          ↓
//	                                                      FragmentCache
//
// A Resolver owns the scope table (FragmentCache) for one entity. Names are
// resolved lazily on first reference and cached forever after.
//
// MATCHING:
//
// For every non-polymorphic association, in declaration order, the matcher
// tries <association>_<column>_<condition> and then <association>_<scope>.
// The first structural match wins, not the longest or most specific one.
// Only when no primary form matches does a second pass try alias condition
// kinds (eq, gt, contains, ...). Names the entity satisfies locally are never
// treated as association conditions.
//
// GENERATORS:
//
// A zero-arity target filter yields a StaticFragment computed once. Any other
// arity yields a ParameterizedFragment that re-derives the target's native
// fragment on every Invoke. Both rewrite joins so the target's own joins nest
// under the association: {comments: {author: {}}}, never flattened.
//
// ALIASES:
//
// An alias name is registered in the cache as the identical generator of its
// primary name. Nothing is rebuilt or copied.
//
// CONCURRENCY:
//
// ResolveOrBuild is atomic per name: concurrent first-time callers share one
// build. A resolution that recursively needs its own name fails fast with
// CYCLE_DETECTED, including across goroutines where the two builds would
// otherwise wait on each other forever.
package resolver
