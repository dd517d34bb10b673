package schema

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
	"github.com/roach88/condscope/internal/resolver"
)

// Entity is one compiled entity. It implements resolver.Entity and
// resolver.PrimaryNamer.
//
// Entities are immutable after the catalog is built and safe for
// concurrent use.
type Entity struct {
	spec    ir.EntitySpec
	vocab   *condition.Vocabulary
	catalog *Catalog

	columns  map[string]ir.ColumnSpec
	byLength []string // column names, longest first
	scopes   map[string]ir.ScopeSpec

	assocSpecs map[string]ir.AssociationSpec
	assocs     []resolver.Association

	version uint64
	filters func() map[string]condition.Signature

	resolver *resolver.Resolver
}

var (
	_ resolver.Entity            = (*Entity)(nil)
	_ resolver.PrimaryNamer      = (*Entity)(nil)
	_ resolver.MetadataVersioner = (*Entity)(nil)
)

// entityVersions numbers entities as they are compiled.
var entityVersions atomic.Uint64

func newEntity(spec ir.EntitySpec, vocab *condition.Vocabulary, catalog *Catalog) *Entity {
	e := &Entity{
		spec:       spec,
		vocab:      vocab,
		catalog:    catalog,
		columns:    make(map[string]ir.ColumnSpec, len(spec.Columns)),
		scopes:     make(map[string]ir.ScopeSpec, len(spec.Scopes)),
		assocSpecs: make(map[string]ir.AssociationSpec, len(spec.Associations)),
		version:    entityVersions.Add(1),
	}
	e.filters = sync.OnceValue(e.listFilters)
	for _, c := range spec.Columns {
		e.columns[c.Name] = c
		e.byLength = append(e.byLength, c.Name)
	}
	slices.SortStableFunc(e.byLength, func(a, b string) int {
		return len(b) - len(a)
	})
	for _, s := range spec.Scopes {
		e.scopes[s.Name] = s
	}
	for _, a := range spec.Associations {
		e.assocSpecs[a.Name] = a
	}
	e.resolver = resolver.New(e, vocab)
	return e
}

// link resolves association targets once every entity exists.
func (e *Entity) link() {
	for _, a := range e.spec.Associations {
		assoc := resolver.Association{Name: a.Name, Polymorphic: a.Polymorphic}
		if !a.Polymorphic {
			target, ok := e.catalog.entities[a.Target]
			if !ok {
				continue
			}
			assoc.Target = target
		}
		e.assocs = append(e.assocs, assoc)
	}
}

// Name implements resolver.Entity.
func (e *Entity) Name() string { return e.spec.Name }

// Spec returns the entity's schema definition.
func (e *Entity) Spec() ir.EntitySpec { return e.spec }

// Resolver returns the entity's association condition resolver.
func (e *Entity) Resolver() *resolver.Resolver { return e.resolver }

// Table returns the table name, defaulting to the snake-cased plural of
// the entity name.
func (e *Entity) Table() string {
	if e.spec.Table != "" {
		return e.spec.Table
	}
	return snake(e.spec.Name) + "s"
}

// PrimaryKey returns the primary key column, "id" unless declared.
func (e *Entity) PrimaryKey() string {
	if e.spec.PrimaryKey != "" {
		return e.spec.PrimaryKey
	}
	return "id"
}

// NonPolymorphicAssociations implements resolver.Entity.
func (e *Entity) NonPolymorphicAssociations() []resolver.Association {
	out := make([]resolver.Association, 0, len(e.assocs))
	for _, a := range e.assocs {
		if !a.Polymorphic {
			out = append(out, a)
		}
	}
	return out
}

// localFilter is a name the entity answers without its resolver.
type localFilter struct {
	name   string
	scope  *ir.ScopeSpec
	column *ir.ColumnSpec
	kind   condition.Kind
}

// local classifies name as a scope, a scope alias or a column condition.
// Columns are tried longest first so created_at_gt never reads as
// created + at_gt.
func (e *Entity) local(name string) (localFilter, bool) {
	if s, ok := e.scopes[name]; ok {
		return localFilter{name: name, scope: &s}, true
	}
	if target, ok := e.spec.AliasScopes[name]; ok {
		if s, ok := e.scopes[target]; ok {
			return localFilter{name: target, scope: &s}, true
		}
	}
	for _, col := range e.byLength {
		rest, ok := strings.CutPrefix(name, col+"_")
		if !ok {
			continue
		}
		kind, ok := e.vocab.Lookup(rest)
		if !ok {
			continue
		}
		c := e.columns[col]
		return localFilter{name: col + "_" + kind.Primary, column: &c, kind: kind}, true
	}
	return localFilter{}, false
}

// LocallySatisfies implements resolver.Entity.
func (e *Entity) LocallySatisfies(name string) bool {
	_, ok := e.local(name)
	return ok
}

// LocalPrimaryName implements resolver.PrimaryNamer: scope aliases map to
// their scope and column condition aliases to the primary kind.
func (e *Entity) LocalPrimaryName(name string) (string, bool) {
	lf, ok := e.local(name)
	if !ok {
		return "", false
	}
	return lf.name, true
}

func (e *Entity) signature(lf localFilter) condition.Signature {
	if lf.scope != nil {
		return scopeSignature(*lf.scope)
	}
	argType := lf.kind.ArgType
	if argType == "" {
		argType = condition.ArgTypeForColumn(lf.column.Type)
	}
	return condition.Signature{Arity: lf.kind.Arity, ArgType: argType}
}

// scopeSignature derives a scope's arity from params: 0 takes no
// arguments, n > 0 exactly n, and -n at least n-1.
func scopeSignature(s ir.ScopeSpec) condition.Signature {
	var arity condition.Arity
	switch {
	case s.Params > 0:
		arity = condition.Fixed(s.Params)
	case s.Params < 0:
		arity = condition.Variadic(-s.Params - 1)
	default:
		arity = condition.Zero()
	}
	argType := condition.ArgType(s.ArgType)
	if argType == "" {
		argType = condition.ArgText
	}
	return condition.Signature{Arity: arity, ArgType: argType}
}

// MetadataVersion implements resolver.MetadataVersioner. An entity never
// changes once compiled, so its version is fixed.
func (e *Entity) MetadataVersion() uint64 { return e.version }

// FilterNamesAndArity implements resolver.Entity. It lists scopes, scope
// aliases and every column condition, aliases included. The listing is
// computed once.
func (e *Entity) FilterNamesAndArity() map[string]condition.Signature {
	return maps.Clone(e.filters())
}

func (e *Entity) listFilters() map[string]condition.Signature {
	out := make(map[string]condition.Signature)
	for name, s := range e.scopes {
		out[name] = scopeSignature(s)
	}
	for alias, target := range e.spec.AliasScopes {
		if s, ok := e.scopes[target]; ok {
			out[alias] = scopeSignature(s)
		}
	}
	kinds := append(e.vocab.Primaries(), e.vocab.Aliases()...)
	for _, c := range e.spec.Columns {
		for _, k := range kinds {
			name := c.Name + "_" + k
			if _, taken := out[name]; taken {
				continue
			}
			if lf, ok := e.local(name); ok {
				out[name] = e.signature(lf)
			}
		}
	}
	return out
}

// FilterSignature implements resolver.Entity. Names the entity cannot
// answer locally are resolved as association conditions, and so is the
// target of a delegating scope.
func (e *Entity) FilterSignature(ctx context.Context, name string) (condition.Signature, error) {
	if lf, ok := e.local(name); ok {
		if lf.scope != nil && lf.scope.Filter != "" {
			if err := e.prepareDelegate(ctx, *lf.scope); err != nil {
				return condition.Signature{}, err
			}
		}
		return e.signature(lf), nil
	}
	gen, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		return condition.Signature{}, err
	}
	return gen.Signature(), nil
}

// InvokeFilter implements resolver.Entity.
func (e *Entity) InvokeFilter(ctx context.Context, name string, args []ir.IRValue) (queryir.NativeFragment, error) {
	if lf, ok := e.local(name); ok {
		if lf.scope != nil {
			return e.invokeScope(ctx, *lf.scope, args)
		}
		return e.invokeColumn(lf, args)
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

// Filter invokes any filter the entity can satisfy and returns a Fragment
// the caller owns.
func (e *Entity) Filter(ctx context.Context, name string, args []ir.IRValue) (queryir.Fragment, error) {
	native, err := e.InvokeFilter(ctx, name, args)
	if err != nil {
		return queryir.Fragment{}, err
	}
	return queryir.Fragment{
		Conditions: native.Conditions.Clone(),
		Joins:      native.Joins.Clone(),
	}, nil
}

func (e *Entity) invokeColumn(lf localFilter, args []ir.IRValue) (queryir.NativeFragment, error) {
	if !lf.kind.Arity.Accepts(len(args)) {
		return queryir.NativeFragment{}, resolver.NewArityError(lf.name, lf.kind.Arity, len(args))
	}
	pred, err := lf.kind.Predicate(args)
	if err != nil {
		return queryir.NativeFragment{}, fmt.Errorf("%s.%s: %w", e.Name(), lf.name, err)
	}
	return queryir.NativeFragment{
		Conditions: queryir.Conditions{queryir.Col(e.Table(), lf.column.Name): pred},
	}, nil
}

// Join describes how an association is joined from its owner.
type Join struct {
	Association  string
	Target       *Entity
	OwnerColumn  string
	TargetColumn string
}

// Join returns the join keys for a non-polymorphic association.
//
// belongs_to joins target.pk = owner.<foreign key>, defaulting the key to
// <association>_id. has_many and has_one join target.<foreign key> =
// owner.pk, defaulting the key to <owner>_id.
func (e *Entity) Join(association string) (Join, error) {
	spec, ok := e.assocSpecs[association]
	if !ok {
		return Join{}, fmt.Errorf("%s has no association %q", e.Name(), association)
	}
	if spec.Polymorphic {
		return Join{}, fmt.Errorf("%s.%s is polymorphic and cannot be joined", e.Name(), association)
	}
	target, ok := e.catalog.entities[spec.Target]
	if !ok {
		return Join{}, fmt.Errorf("%s.%s targets unknown entity %q", e.Name(), association, spec.Target)
	}

	j := Join{Association: association, Target: target}
	switch spec.Kind {
	case ir.BelongsTo:
		j.OwnerColumn = spec.ForeignKey
		if j.OwnerColumn == "" {
			j.OwnerColumn = association + "_id"
		}
		j.TargetColumn = target.PrimaryKey()
	default:
		j.OwnerColumn = e.PrimaryKey()
		j.TargetColumn = spec.ForeignKey
		if j.TargetColumn == "" {
			j.TargetColumn = snake(e.Name()) + "_id"
		}
	}
	return j, nil
}

// snake converts CamelCase to snake_case.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
