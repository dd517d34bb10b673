package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
	"github.com/roach88/condscope/internal/testutil"
)

func TestResolver_ScopeForm(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	gen, err := f.post.resolver.Resolve(ctx, "comments_published")
	require.NoError(t, err)

	static, ok := gen.(*StaticFragment)
	require.True(t, ok, "zero-arity scope should build a static fragment")
	assert.Equal(t, "comments_published", static.Name())
	assert.True(t, static.Signature().Arity.IsZero())

	frag := mustInvoke(gen)
	assert.Equal(t, queryir.Conditions{
		queryir.Col("comments", "status"): queryir.Equals{Value: ir.IRString("published")},
	}, frag.Conditions)
	assert.Equal(t, queryir.Leaf("comments"), frag.Joins)
}

func TestResolver_ColumnConditionForm(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	gen, err := f.post.resolver.Resolve(ctx, "author_name_equals")
	require.NoError(t, err)

	_, ok := gen.(*ParameterizedFragment)
	require.True(t, ok)
	assert.Equal(t, condition.Fixed(1), gen.Signature().Arity)
	assert.Equal(t, condition.ArgText, gen.Signature().ArgType)

	frag := mustInvoke(gen, ir.IRString("Ben"))
	assert.Equal(t, queryir.Conditions{
		queryir.Col("users", "name"): queryir.Equals{Value: ir.IRString("Ben")},
	}, frag.Conditions)
	assert.Equal(t, queryir.Leaf("author"), frag.Joins)
}

func TestResolver_ArgTypeFollowsTarget(t *testing.T) {
	f := newBlogFixture()

	gen, err := f.post.resolver.Resolve(context.Background(), "comments_votes_greater_than")
	require.NoError(t, err)
	assert.Equal(t, condition.ArgNumeric, gen.Signature().ArgType)

	frag := mustInvoke(gen, ir.IRInt(5))
	assert.Equal(t, queryir.Compare{Op: queryir.OpGreater, Value: ir.IRInt(5)},
		frag.Conditions[queryir.Col("comments", "votes")])
}

func TestResolver_ArgTypeDefaultsToText(t *testing.T) {
	target := newTestEntity("Tag")
	target.addFilter("named", testFilter{
		sig: condition.Signature{Arity: condition.Fixed(1)},
		invoke: func(_ context.Context, args []ir.IRValue) (queryir.NativeFragment, error) {
			return queryir.NativeFragment{Conditions: queryir.Conditions{
				queryir.Col("tags", "name"): queryir.Equals{Value: args[0]},
			}}, nil
		},
	})
	target.addColumn("tags", "name", "string")
	owner := newTestEntity("Post")
	owner.associate("tags", target)

	gen, err := owner.resolver.Resolve(context.Background(), "tags_name_equals")
	require.NoError(t, err)
	assert.Equal(t, condition.ArgText, gen.Signature().ArgType)
}

func TestResolver_StaticKeepsTargetArgType(t *testing.T) {
	target := newTestEntity("Tag")
	target.addFilter("pinned", testFilter{
		sig: condition.Signature{Arity: condition.Zero(), ArgType: condition.ArgBoolean},
		invoke: func(context.Context, []ir.IRValue) (queryir.NativeFragment, error) {
			return queryir.NativeFragment{Conditions: queryir.Conditions{
				queryir.Col("tags", "pinned"): queryir.Equals{Value: ir.IRBool(true)},
			}, ReadOnly: true}, nil
		},
	})
	owner := newTestEntity("Post")
	owner.associate("tags", target)

	gen, err := owner.resolver.Resolve(context.Background(), "tags_pinned")
	require.NoError(t, err)
	require.IsType(t, &StaticFragment{}, gen)
	assert.Equal(t, condition.Signature{Arity: condition.Zero(), ArgType: condition.ArgBoolean}, gen.Signature())
}

func TestResolver_ArityMismatch(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	gen, err := f.post.resolver.Resolve(ctx, "author_name_equals")
	require.NoError(t, err)

	_, err = gen.Invoke(ctx, []ir.IRValue{ir.IRString("a"), ir.IRString("b")})
	require.Error(t, err)
	assert.True(t, IsArityMismatch(err))
	assert.Contains(t, err.Error(), "expected Fixed(1) arguments, got 2")
	assert.Equal(t, 0, f.user.invokeCount("name_equals"), "mismatch must not reach the target")

	_, err = gen.Invoke(ctx, nil)
	assert.True(t, IsArityMismatch(err))
}

func TestResolver_StaticRejectsArguments(t *testing.T) {
	f := newBlogFixture()

	gen, err := f.post.resolver.Resolve(context.Background(), "comments_published")
	require.NoError(t, err)

	_, err = gen.Invoke(context.Background(), []ir.IRValue{ir.IRString("x")})
	assert.True(t, IsArityMismatch(err))
}

func TestResolver_Variadic(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	gen, err := f.post.resolver.Resolve(ctx, "comments_status_equals_any")
	require.NoError(t, err)
	assert.Equal(t, condition.Variadic(1), gen.Signature().Arity)

	frag := mustInvoke(gen, ir.IRString("draft"), ir.IRString("published"))
	assert.Equal(t, queryir.In{Values: []ir.IRValue{ir.IRString("draft"), ir.IRString("published")}},
		frag.Conditions[queryir.Col("comments", "status")])

	frag = mustInvoke(gen, ir.IRArray{ir.IRString("a"), ir.IRString("b")})
	assert.Equal(t, queryir.In{Values: []ir.IRValue{ir.IRString("a"), ir.IRString("b")}},
		frag.Conditions[queryir.Col("comments", "status")])

	_, err = gen.Invoke(ctx, nil)
	assert.True(t, IsArityMismatch(err))
}

func TestResolver_AliasSharesGenerator(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	alias, err := f.post.resolver.Resolve(ctx, "comments_votes_gt")
	require.NoError(t, err)
	primary, err := f.post.resolver.Resolve(ctx, "comments_votes_greater_than")
	require.NoError(t, err)

	assert.Same(t, primary, alias)
	assert.Equal(t, "comments_votes_greater_than", alias.Name())
	assert.Equal(t, 1, f.post.resolver.Cache().Builds())

	entry, ok := f.post.resolver.Cache().Entry("comments_votes_gt")
	require.True(t, ok)
	assert.Equal(t, "comments_votes_greater_than", entry.AliasOf)

	entry, ok = f.post.resolver.Cache().Entry("comments_votes_greater_than")
	require.True(t, ok)
	assert.Empty(t, entry.AliasOf)
}

func TestResolver_AliasAfterPrimary(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	primary, err := f.post.resolver.Resolve(ctx, "author_name_equals")
	require.NoError(t, err)
	alias, err := f.post.resolver.Resolve(ctx, "author_name_eq")
	require.NoError(t, err)

	assert.Same(t, primary, alias)
	assert.Equal(t, 1, f.post.resolver.Cache().Builds(), "alias registration must not build a second generator")
	assert.Equal(t, 2, f.post.resolver.Cache().Len())
}

func TestResolver_PolymorphicIsNoMatch(t *testing.T) {
	f := newBlogFixture()

	assert.False(t, f.post.resolver.Condition("taggable_name_equals"))

	_, err := f.post.resolver.Resolve(context.Background(), "taggable_name_equals")
	require.Error(t, err)
	assert.True(t, IsNoMatch(err))
}

func TestResolver_UnknownNameIsNoMatch(t *testing.T) {
	f := newBlogFixture()

	for _, name := range []string{"", "comments", "comments_", "nothing_here", "comments_body_frobnicates", "comments-published"} {
		t.Run(name, func(t *testing.T) {
			_, err := f.post.resolver.Resolve(context.Background(), name)
			assert.True(t, IsNoMatch(err), "got %v", err)
			assert.Equal(t, 0, f.post.resolver.Cache().Len())
		})
	}
}

func TestResolver_LocalNameTakesPrecedence(t *testing.T) {
	f := newBlogFixture()
	f.post.addScope("comments_published", queryir.Conditions{
		queryir.Col("posts", "has_comments"): queryir.Equals{Value: ir.IRBool(true)},
	})

	assert.True(t, f.post.resolver.Condition("comments_published"))

	_, ok := f.post.resolver.Decompose("comments_published")
	assert.False(t, ok)

	_, err := f.post.resolver.Resolve(context.Background(), "comments_published")
	assert.True(t, IsNoMatch(err))
	assert.Equal(t, 0, f.comment.invokeCount("published"))
}

func TestResolver_IdempotentResolution(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	first, err := f.post.resolver.Resolve(ctx, "comments_published")
	require.NoError(t, err)
	second, err := f.post.resolver.Resolve(ctx, "comments_published")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.comment.invokeCount("published"))
	assert.Equal(t, 1, f.post.resolver.Cache().Builds())
}

func TestResolver_StaticFragmentIsCopied(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	gen, err := f.post.resolver.Resolve(ctx, "comments_published")
	require.NoError(t, err)

	frag := mustInvoke(gen)
	frag.Conditions[queryir.Col("posts", "id")] = queryir.Equals{Value: ir.IRInt(1)}
	frag.Joins["author"] = queryir.JoinTree{}

	again := mustInvoke(gen)
	assert.Len(t, again.Conditions, 1)
	assert.Equal(t, queryir.Leaf("comments"), again.Joins)
}

func TestResolver_MultiHopNesting(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	gen, err := f.post.resolver.Resolve(ctx, "comments_user_name_equals")
	require.NoError(t, err)
	assert.Equal(t, condition.Fixed(1), gen.Signature().Arity)

	frag := mustInvoke(gen, ir.IRString("Ben"))
	assert.Equal(t, queryir.Conditions{
		queryir.Col("users", "name"): queryir.Equals{Value: ir.IRString("Ben")},
	}, frag.Conditions)
	assert.Equal(t, queryir.JoinTree{"comments": queryir.Leaf("user")}, frag.Joins)
	assert.Equal(t, "{comments: {user}}", frag.Joins.String())

	// The intermediate entity resolved its own name along the way.
	_, ok := f.comment.resolver.Cache().Lookup("user_name_equals")
	assert.True(t, ok)
}

func TestResolver_MultiHopStatic(t *testing.T) {
	f := newBlogFixture()

	gen, err := f.post.resolver.Resolve(context.Background(), "comments_user_name_null")
	require.NoError(t, err)
	_, ok := gen.(*StaticFragment)
	require.True(t, ok)

	frag := mustInvoke(gen)
	assert.Equal(t, queryir.JoinTree{"comments": queryir.Leaf("user")}, frag.Joins)
	assert.Equal(t, queryir.IsNull{}, frag.Conditions[queryir.Col("users", "name")])
}

func TestResolver_ScopeFormOnlySeesLocalScopes(t *testing.T) {
	f := newBlogFixture()

	// active is a User scope, not a Comment scope; comments_user_active
	// names no scope Comment declares.
	_, err := f.post.resolver.Resolve(context.Background(), "comments_user_active")
	assert.True(t, IsNoMatch(err))

	gen, err := f.comment.resolver.Resolve(context.Background(), "user_active")
	require.NoError(t, err)
	assert.Equal(t, queryir.Leaf("user"), mustInvoke(gen).Joins)
}

func TestResolver_FirstDeclaredAssociationWins(t *testing.T) {
	profile := newTestEntity("Profile")
	profile.addColumn("profiles", "bio", "string")
	user := newTestEntity("User")
	user.addColumn("users", "profile_bio", "string")

	post := newTestEntity("Post")
	post.associate("author", user)
	post.associate("author_profile", profile)

	d, ok := post.resolver.Decompose("author_profile_bio_equals")
	require.True(t, ok)
	assert.Equal(t, "author", d.Association)
	assert.Equal(t, "profile_bio", d.Column)
	assert.Equal(t, "equals", d.Condition)

	frag := mustInvoke(mustResolve(t, post.resolver, "author_profile_bio_equals"), ir.IRString("x"))
	assert.Equal(t, queryir.Leaf("author"), frag.Joins)
}

func TestResolver_ResolutionErrorNotCached(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	var fail sync.Mutex
	failing := true
	f.comment.addFilter("flaky", testFilter{
		sig: condition.Signature{Arity: condition.Zero()},
		invoke: func(context.Context, []ir.IRValue) (queryir.NativeFragment, error) {
			fail.Lock()
			defer fail.Unlock()
			if failing {
				return queryir.NativeFragment{}, errors.New("connection reset")
			}
			return queryir.NativeFragment{Conditions: queryir.Conditions{
				queryir.Col("comments", "flaky"): queryir.IsNull{},
			}}, nil
		},
	})

	_, err := f.post.resolver.Resolve(ctx, "comments_flaky")
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 0, f.post.resolver.Cache().Len())

	fail.Lock()
	failing = false
	fail.Unlock()

	gen, err := f.post.resolver.Resolve(ctx, "comments_flaky")
	require.NoError(t, err)
	assert.Equal(t, queryir.IsNull{}, mustInvoke(gen).Conditions[queryir.Col("comments", "flaky")])
	assert.Equal(t, 2, f.comment.invokeCount("flaky"))
}

func TestResolver_TargetCannotSatisfyColumn(t *testing.T) {
	f := newBlogFixture()

	// Decomposes against comments, but Comment has no "rating" column.
	_, err := f.post.resolver.Resolve(context.Background(), "comments_rating_equals")
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))
	assert.False(t, IsNoMatch(err))
}

func TestResolver_ConcurrentFirstResolution(t *testing.T) {
	f := newBlogFixture()
	ctx := context.Background()

	const workers = 32
	gens := make([]FragmentGenerator, workers)
	errs := make([]error, workers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			name := "comments_published"
			if i%2 == 1 {
				name = "comments_votes_gt"
			}
			gens[i], errs[i] = f.post.resolver.Resolve(ctx, name)
		}()
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, gens[i%2], gens[i])
	}
	assert.Equal(t, 1, f.comment.invokeCount("published"))
	assert.Equal(t, 3, f.post.resolver.Cache().Len())
}

// loopFixture wires A.b_loop -> B.loop -> B.a_back -> A.back -> A.b_loop.
func loopFixture(hook func(entity string)) (*testEntity, *testEntity) {
	a := newTestEntity("A")
	b := newTestEntity("B")
	a.associate("b", b)
	b.associate("a", a)

	delegate := func(self *testEntity, label, target string) testFilter {
		return testFilter{
			sig: condition.Signature{Arity: condition.Zero()},
			invoke: func(ctx context.Context, args []ir.IRValue) (queryir.NativeFragment, error) {
				if hook != nil {
					hook(label)
				}
				gen, err := self.resolver.Resolve(ctx, target)
				if err != nil {
					return queryir.NativeFragment{}, err
				}
				frag, err := gen.Invoke(ctx, args)
				if err != nil {
					return queryir.NativeFragment{}, err
				}
				return queryir.NativeFragment{Conditions: frag.Conditions, Joins: frag.Joins}, nil
			},
		}
	}
	b.addFilter("loop", delegate(b, "B", "a_back"))
	a.addFilter("back", delegate(a, "A", "b_loop"))
	return a, b
}

func TestResolver_CycleDetected(t *testing.T) {
	a, b := loopFixture(nil)

	_, err := a.resolver.Resolve(context.Background(), "b_loop")
	require.Error(t, err)
	assert.True(t, IsCycleError(err), "got %v", err)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, []string{"A.b_loop", "B.a_back", "A.b_loop"}, re.Path)

	assert.Equal(t, 0, a.resolver.Cache().Len())
	assert.Equal(t, 0, b.resolver.Cache().Len())
}

func TestResolver_ConcurrentCycleDetected(t *testing.T) {
	var (
		mu      sync.Mutex
		arrived = map[string]bool{}
		both    = make(chan struct{})
	)
	hook := func(label string) {
		mu.Lock()
		arrived[label] = true
		if arrived["A"] && arrived["B"] {
			select {
			case <-both:
			default:
				close(both)
			}
		}
		mu.Unlock()
		<-both
	}
	a, b := loopFixture(hook)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = a.resolver.Resolve(ctx, "b_loop")
	}()
	go func() {
		defer wg.Done()
		_, errB = b.resolver.Resolve(ctx, "a_back")
	}()
	wg.Wait()

	require.NoError(t, ctx.Err(), "resolutions deadlocked")
	assert.True(t, IsCycleError(errA), "got %v", errA)
	assert.True(t, IsCycleError(errB), "got %v", errB)
	assert.Equal(t, 0, a.resolver.Cache().Len())
	assert.Equal(t, 0, b.resolver.Cache().Len())
}

func TestResolver_PrimaryNameFor(t *testing.T) {
	f := newBlogFixture()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"comments_votes_gt", "comments_votes_greater_than", true},
		{"comments_votes_greater_than", "comments_votes_greater_than", true},
		{"comments_published", "comments_published", true},
		{"title_equals", "title_equals", true},
		{"taggable_name_eq", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.post.resolver.PrimaryNameFor(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_InnerJoins(t *testing.T) {
	f := newBlogFixture()

	joins, err := f.post.resolver.InnerJoins("comments")
	require.NoError(t, err)
	assert.Equal(t, queryir.Leaf("comments"), joins)

	_, err = f.post.resolver.InnerJoins("taggable")
	assert.True(t, IsResolutionError(err))
}

func TestResolver_ResolutionIDOnChain(t *testing.T) {
	f := newBlogFixture()

	var ids []string
	f.comment.addFilter("traced", testFilter{
		sig: condition.Signature{Arity: condition.Zero()},
		invoke: func(ctx context.Context, _ []ir.IRValue) (queryir.NativeFragment, error) {
			ids = append(ids, ResolutionID(ctx))
			return queryir.NativeFragment{}, nil
		},
	})

	assert.Empty(t, ResolutionID(context.Background()))

	gen := testutil.NewSequenceGenerator("res")
	ctx := WithIDGenerator(context.Background(), gen)

	_, err := f.post.resolver.Resolve(ctx, "comments_traced")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "res-1", ids[0])
	assert.Equal(t, 1, gen.Count(), "nested resolutions reuse the chain's token")

	// Cached names start no resolution at all.
	_, err = f.post.resolver.Resolve(ctx, "comments_traced")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Count())
}

func TestResolver_DefaultResolutionIDIsUUID(t *testing.T) {
	f := newBlogFixture()

	var id string
	f.comment.addFilter("traced", testFilter{
		sig: condition.Signature{Arity: condition.Zero()},
		invoke: func(ctx context.Context, _ []ir.IRValue) (queryir.NativeFragment, error) {
			id = ResolutionID(ctx)
			return queryir.NativeFragment{}, nil
		},
	})

	_, err := f.post.resolver.Resolve(context.Background(), "comments_traced")
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func mustResolve(t *testing.T, r *Resolver, name string) FragmentGenerator {
	t.Helper()
	gen, err := r.Resolve(context.Background(), name)
	require.NoError(t, err)
	return gen
}
