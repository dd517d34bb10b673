package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

// testFilter is one local filter of a testEntity.
type testFilter struct {
	sig    condition.Signature
	invoke func(ctx context.Context, args []ir.IRValue) (queryir.NativeFragment, error)
}

// testEntity is an in-memory Entity. Non-local names go through its own
// resolver, the way a real entity's dispatcher would.
type testEntity struct {
	name   string
	assocs []Association

	mu       sync.Mutex
	filters  map[string]testFilter
	invokes  map[string]int
	resolver *Resolver
}

func newTestEntity(name string) *testEntity {
	e := &testEntity{
		name:    name,
		filters: make(map[string]testFilter),
		invokes: make(map[string]int),
	}
	e.resolver = New(e, nil)
	return e
}

func (e *testEntity) Name() string { return e.name }

func (e *testEntity) NonPolymorphicAssociations() []Association {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Association, 0, len(e.assocs))
	for _, a := range e.assocs {
		if !a.Polymorphic {
			out = append(out, a)
		}
	}
	return out
}

func (e *testEntity) LocallySatisfies(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.filters[name]
	return ok
}

func (e *testEntity) FilterNamesAndArity() map[string]condition.Signature {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]condition.Signature, len(e.filters))
	for name, f := range e.filters {
		out[name] = f.sig
	}
	return out
}

func (e *testEntity) FilterSignature(ctx context.Context, name string) (condition.Signature, error) {
	e.mu.Lock()
	f, ok := e.filters[name]
	e.mu.Unlock()
	if ok {
		return f.sig, nil
	}
	gen, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		return condition.Signature{}, err
	}
	return gen.Signature(), nil
}

func (e *testEntity) InvokeFilter(ctx context.Context, name string, args []ir.IRValue) (queryir.NativeFragment, error) {
	e.mu.Lock()
	f, ok := e.filters[name]
	e.invokes[name]++
	e.mu.Unlock()
	if ok {
		return f.invoke(ctx, args)
	}
	gen, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		return queryir.NativeFragment{}, err
	}
	frag, err := gen.Invoke(ctx, args)
	if err != nil {
		return queryir.NativeFragment{}, err
	}
	return queryir.NativeFragment{Conditions: frag.Conditions, Joins: frag.Joins}, nil
}

func (e *testEntity) invokeCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invokes[name]
}

func (e *testEntity) associate(name string, target *testEntity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assocs = append(e.assocs, Association{Name: name, Target: target})
}

func (e *testEntity) associatePolymorphic(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assocs = append(e.assocs, Association{Name: name, Polymorphic: true})
}

func (e *testEntity) addFilter(name string, f testFilter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = f
}

// addScope registers a zero-argument filter with a fixed fragment.
func (e *testEntity) addScope(name string, conds queryir.Conditions) {
	e.addFilter(name, testFilter{
		sig: condition.Signature{Arity: condition.Zero(), ArgType: condition.ArgText},
		invoke: func(context.Context, []ir.IRValue) (queryir.NativeFragment, error) {
			return queryir.NativeFragment{Conditions: conds.Clone(), ReadOnly: true}, nil
		},
	})
}

// addColumn registers <column>_<kind> filters for every kind in the default
// vocabulary, aliases included.
func (e *testEntity) addColumn(table, column, columnType string) {
	vocab := condition.Default()
	kinds := append(vocab.Primaries(), vocab.Aliases()...)
	for _, kindName := range kinds {
		kind, _ := vocab.Lookup(kindName)
		argType := kind.ArgType
		if argType == "" {
			argType = condition.ArgTypeForColumn(columnType)
		}
		col := queryir.Col(table, column)
		e.addFilter(column+"_"+kindName, testFilter{
			sig: condition.Signature{Arity: kind.Arity, ArgType: argType},
			invoke: func(_ context.Context, args []ir.IRValue) (queryir.NativeFragment, error) {
				pred, err := kind.Predicate(args)
				if err != nil {
					return queryir.NativeFragment{}, err
				}
				return queryir.NativeFragment{Conditions: queryir.Conditions{col: pred}}, nil
			},
		})
	}
}

// blogFixture is the Post/Comment/User/Tag graph used across tests.
type blogFixture struct {
	post    *testEntity
	comment *testEntity
	user    *testEntity
}

func newBlogFixture() *blogFixture {
	user := newTestEntity("User")
	user.addColumn("users", "name", "string")
	user.addColumn("users", "age", "int")
	user.addScope("active", queryir.Conditions{
		queryir.Col("users", "active"): queryir.Equals{Value: ir.IRBool(true)},
	})

	comment := newTestEntity("Comment")
	comment.addColumn("comments", "status", "string")
	comment.addColumn("comments", "body", "string")
	comment.addColumn("comments", "votes", "int")
	comment.addScope("published", queryir.Conditions{
		queryir.Col("comments", "status"): queryir.Equals{Value: ir.IRString("published")},
	})
	comment.associate("user", user)

	post := newTestEntity("Post")
	post.addColumn("posts", "title", "string")
	post.associate("comments", comment)
	post.associate("author", user)
	post.associatePolymorphic("taggable")

	return &blogFixture{post: post, comment: comment, user: user}
}

func mustInvoke(gen FragmentGenerator, args ...ir.IRValue) queryir.Fragment {
	frag, err := gen.Invoke(context.Background(), args)
	if err != nil {
		panic(fmt.Sprintf("invoke %s: %v", gen.Name(), err))
	}
	return frag
}
