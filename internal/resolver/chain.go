package resolver

import (
	"context"
	"sync"
)

// resolution is one logical top-level resolution. Every name built on its
// behalf, however deeply nested, is owned by it.
type resolution struct {
	id string

	// waitingOn is the in-flight call this resolution is blocked on.
	// Guarded by waitMu.
	waitingOn *call
}

// frame is one link of a resolution chain: name is being built by res in
// cache. Frames are immutable and travel in the context.
type frame struct {
	parent *frame
	cache  *FragmentCache
	name   string
	res    *resolution
}

type frameKey struct{}

func frameFrom(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

func withFrame(ctx context.Context, f *frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// contains reports whether name in cache is already being built on this
// chain.
func (f *frame) contains(cache *FragmentCache, name string) bool {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.cache == cache && cur.name == name {
			return true
		}
	}
	return false
}

// path lists the chain from the outermost frame to this one as entity.name.
func (f *frame) path() []string {
	var rev []string
	for cur := f; cur != nil; cur = cur.parent {
		rev = append(rev, cur.cache.label+"."+cur.name)
	}
	out := make([]string, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}

// resolutionFor returns the chain's resolution or starts a new one with a
// token from the context's IDGenerator.
func resolutionFor(ctx context.Context, f *frame) *resolution {
	if f != nil {
		return f.res
	}
	return &resolution{id: idGeneratorFrom(ctx).Generate()}
}

// ResolutionID returns the token of the resolution in progress on ctx,
// or "" outside of a resolution.
func ResolutionID(ctx context.Context) string {
	if f := frameFrom(ctx); f != nil {
		return f.res.id
	}
	return ""
}

// waitMu guards every resolution.waitingOn so the waits-for graph can be
// walked consistently across caches.
var waitMu sync.Mutex

// beginWait records that res is about to block on c. It returns false when
// doing so would close a waits-for loop: c's owner is (transitively) waiting
// on a call res owns.
func beginWait(res *resolution, c *call) bool {
	waitMu.Lock()
	defer waitMu.Unlock()

	for owner := c.owner; owner != nil; {
		if owner == res {
			return false
		}
		next := owner.waitingOn
		if next == nil {
			break
		}
		owner = next.owner
	}
	res.waitingOn = c
	return true
}

func endWait(res *resolution) {
	waitMu.Lock()
	res.waitingOn = nil
	waitMu.Unlock()
}
