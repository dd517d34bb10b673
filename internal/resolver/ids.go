package resolver

import (
	"context"

	"github.com/google/uuid"
)

// IDGenerator produces resolution tokens. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 resolution tokens, so
// debug logs from one session sort by when each resolution started.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type idGeneratorKey struct{}

// WithIDGenerator returns a context whose top-level resolutions take their
// token from gen. Nested resolutions keep the token of the chain they
// belong to.
func WithIDGenerator(ctx context.Context, gen IDGenerator) context.Context {
	return context.WithValue(ctx, idGeneratorKey{}, gen)
}

func idGeneratorFrom(ctx context.Context) IDGenerator {
	if gen, ok := ctx.Value(idGeneratorKey{}).(IDGenerator); ok && gen != nil {
		return gen
	}
	return UUIDv7Generator{}
}
