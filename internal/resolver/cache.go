package resolver

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Entry is one registry entry: a name and the generator it resolves to.
type Entry struct {
	Name      string
	Generator FragmentGenerator
	// AliasOf names the primary entry this alias shares its generator
	// with. Empty for primary entries.
	AliasOf string
}

// call is an in-flight build of one name.
type call struct {
	name  string
	owner *resolution
	done  chan struct{}
	gen   FragmentGenerator
	err   error
}

// FragmentCache memoizes generators by name.
//
// Each name is built at most once. Concurrent first-time callers share a
// single build and observe the same generator. Failed builds register
// nothing, so a later call retries.
type FragmentCache struct {
	label string

	mu      sync.Mutex
	entries map[string]*Entry
	calls   map[string]*call
	builds  int
}

// NewFragmentCache creates an empty cache. label names the owning entity in
// cycle paths and logs.
func NewFragmentCache(label string) *FragmentCache {
	return &FragmentCache{
		label:   label,
		entries: make(map[string]*Entry),
		calls:   make(map[string]*call),
	}
}

// BuildFunc constructs a generator. The context carries the resolution
// chain and must be passed to any nested resolution.
type BuildFunc func(ctx context.Context) (FragmentGenerator, error)

// ResolveOrBuild returns the generator registered under name, building and
// registering it first if needed.
//
// Returns CYCLE_DETECTED without building when name is already being built
// on the caller's own chain, or when waiting for another caller's build
// would deadlock.
func (c *FragmentCache) ResolveOrBuild(ctx context.Context, name string, build BuildFunc) (FragmentGenerator, error) {
	parent := frameFrom(ctx)

	c.mu.Lock()
	if e, ok := c.entries[name]; ok {
		c.mu.Unlock()
		return e.Generator, nil
	}
	if parent.contains(c, name) {
		c.mu.Unlock()
		path := append(parent.path(), c.label+"."+name)
		return nil, NewCycleError(c.label, name, path)
	}
	if inflight, ok := c.calls[name]; ok {
		c.mu.Unlock()
		return c.wait(ctx, parent, inflight)
	}

	res := resolutionFor(ctx, parent)
	cl := &call{name: name, owner: res, done: make(chan struct{})}
	c.calls[name] = cl
	c.mu.Unlock()

	slog.Debug("building fragment generator",
		"entity", c.label,
		"name", name,
		"resolution", res.id)

	gen, err := build(withFrame(ctx, &frame{parent: parent, cache: c, name: name, res: res}))

	c.mu.Lock()
	delete(c.calls, name)
	if err == nil {
		if e, ok := c.entries[name]; ok {
			// Registered during the build (alias registration); keep it.
			gen = e.Generator
		} else {
			c.entries[name] = &Entry{Name: name, Generator: gen}
			c.builds++
		}
	}
	cl.gen, cl.err = gen, err
	close(cl.done)
	c.mu.Unlock()

	if err != nil {
		slog.Debug("fragment generator build failed",
			"entity", c.label,
			"name", name,
			"resolution", res.id,
			"error", err)
	}
	return gen, err
}

// wait blocks until another caller's build of the same name finishes.
func (c *FragmentCache) wait(ctx context.Context, parent *frame, inflight *call) (FragmentGenerator, error) {
	if parent != nil {
		if !beginWait(parent.res, inflight) {
			path := append(parent.path(), c.label+"."+inflight.name)
			return nil, NewCycleError(c.label, inflight.name, path)
		}
		defer endWait(parent.res)
	}

	select {
	case <-inflight.done:
		return inflight.gen, inflight.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Register adds name as an entry for gen. If name is already registered the
// existing generator is returned unchanged.
func (c *FragmentCache) Register(name string, gen FragmentGenerator, aliasOf string) FragmentGenerator {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[name]; ok {
		return e.Generator
	}
	c.entries[name] = &Entry{Name: name, Generator: gen, AliasOf: aliasOf}
	return gen
}

// Lookup returns the generator registered under name.
func (c *FragmentCache) Lookup(name string) (FragmentGenerator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return e.Generator, true
}

// Entry returns a copy of the registry entry for name.
func (c *FragmentCache) Entry(name string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Names returns the registered names, sorted.
func (c *FragmentCache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered entries.
func (c *FragmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Builds returns how many generators have been built and registered.
// Alias registrations do not count.
func (c *FragmentCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
