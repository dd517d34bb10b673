package resolver

import (
	"context"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

// Association is a named relationship from one entity to another.
// It is supplied by the metadata collaborator and read-only here.
type Association struct {
	Name        string
	Target      Entity
	Polymorphic bool
}

// Entity is the metadata collaborator for one entity type.
//
// Implementations must be safe for concurrent use. FilterSignature and
// InvokeFilter may recursively resolve the entity's own association
// conditions; the context carries the resolution chain and must be passed
// through unchanged.
type Entity interface {
	// Name identifies the entity in errors and logs.
	Name() string

	// NonPolymorphicAssociations lists associations in declaration order.
	NonPolymorphicAssociations() []Association

	// LocallySatisfies reports whether the entity can answer name itself
	// (a scope or a column condition). Local names are never association
	// conditions.
	LocallySatisfies(name string) bool

	// FilterNamesAndArity lists the entity's local filters.
	FilterNamesAndArity() map[string]condition.Signature

	// FilterSignature returns the signature of any filter the entity can
	// satisfy, including its own association conditions.
	FilterSignature(ctx context.Context, name string) (condition.Signature, error)

	// InvokeFilter runs the entity's filter dispatcher.
	InvokeFilter(ctx context.Context, name string, args []ir.IRValue) (queryir.NativeFragment, error)
}

// PrimaryNamer is implemented by entities that can canonicalize their own
// local condition names (for example name_eq → name_equals).
type PrimaryNamer interface {
	LocalPrimaryName(name string) (string, bool)
}

// MetadataVersioner is implemented by entities that can report when their
// local filters change. The matcher compares versions instead of listing the
// filters of every association target on each match.
type MetadataVersioner interface {
	MetadataVersion() uint64
}
