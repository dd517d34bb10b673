// Package testutil provides deterministic helpers for tests.
package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same resolution token every time.
//
// Useful when every resolution in a test should log the same token.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	token string
}

// NewFixedIDGenerator creates a generator that always returns token.
// If token is empty, Generate() returns "test-resolution-default".
func NewFixedIDGenerator(token string) *FixedIDGenerator {
	if token == "" {
		token = "test-resolution-default"
	}
	return &FixedIDGenerator{token: token}
}

// Generate returns the fixed token.
//
// Implements resolver.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.token
}

// SequenceGenerator returns prefix-1, prefix-2, ... in call order.
//
// This makes resolution tokens predictable in tests that start several
// top-level resolutions.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator whose tokens start with prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Count returns how many tokens have been handed out.
func (g *SequenceGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
