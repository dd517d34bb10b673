package condition

import (
	"fmt"

	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

// Kind is a named condition operator.
//
// For a primary kind Primary equals Name. For an alias Primary names the
// primary kind, and the alias shares its arity, argument type and builder.
type Kind struct {
	Name    string
	Primary string
	Arity   Arity
	// ArgType overrides the column-derived argument type (pattern kinds
	// always take text). Empty means "use the column's type".
	ArgType ArgType
	build   func(args []ir.IRValue) (queryir.Predicate, error)
}

// IsAlias reports whether the kind is an alias of another kind.
func (k Kind) IsAlias() bool {
	return k.Name != k.Primary
}

// Predicate builds the predicate for this kind from already arity-checked
// arguments.
func (k Kind) Predicate(args []ir.IRValue) (queryir.Predicate, error) {
	if !k.Arity.Accepts(len(args)) {
		return nil, fmt.Errorf("condition %s expects %s arguments, got %d", k.Name, k.Arity, len(args))
	}
	return k.build(args)
}

// Vocabulary is a static registry of condition kinds, split into primary
// kinds and alias kinds, both kept in declaration order.
type Vocabulary struct {
	primaries []string
	aliases   []string
	kinds     map[string]Kind
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{kinds: make(map[string]Kind)}
}

// AddPrimary registers a primary kind followed by its aliases.
// Registering a name twice is an error.
func (v *Vocabulary) AddPrimary(name string, arity Arity, argType ArgType, build func([]ir.IRValue) (queryir.Predicate, error), aliases ...string) error {
	if _, exists := v.kinds[name]; exists {
		return fmt.Errorf("condition %q already registered", name)
	}
	v.kinds[name] = Kind{Name: name, Primary: name, Arity: arity, ArgType: argType, build: build}
	v.primaries = append(v.primaries, name)
	for _, alias := range aliases {
		if err := v.AddAlias(alias, name); err != nil {
			return err
		}
	}
	return nil
}

// AddAlias registers alias as another name for primary.
func (v *Vocabulary) AddAlias(alias, primary string) error {
	if _, exists := v.kinds[alias]; exists {
		return fmt.Errorf("condition %q already registered", alias)
	}
	p, ok := v.kinds[primary]
	if !ok || p.IsAlias() {
		return fmt.Errorf("alias %q: %q is not a primary condition", alias, primary)
	}
	k := p
	k.Name = alias
	v.kinds[alias] = k
	v.aliases = append(v.aliases, alias)
	return nil
}

// Primaries returns the primary kind names in declaration order.
func (v *Vocabulary) Primaries() []string {
	return append([]string(nil), v.primaries...)
}

// Aliases returns the alias kind names in declaration order.
func (v *Vocabulary) Aliases() []string {
	return append([]string(nil), v.aliases...)
}

// Lookup returns the kind registered under name.
func (v *Vocabulary) Lookup(name string) (Kind, bool) {
	k, ok := v.kinds[name]
	return k, ok
}

// PrimaryOf returns the primary kind name for name (itself for a primary).
func (v *Vocabulary) PrimaryOf(name string) (string, bool) {
	k, ok := v.kinds[name]
	if !ok {
		return "", false
	}
	return k.Primary, true
}

// IsPrimary reports whether name is a registered primary kind.
func (v *Vocabulary) IsPrimary(name string) bool {
	k, ok := v.kinds[name]
	return ok && !k.IsAlias()
}

// IsAlias reports whether name is a registered alias kind.
func (v *Vocabulary) IsAlias(name string) bool {
	k, ok := v.kinds[name]
	return ok && k.IsAlias()
}
