package resolver

import (
	"slices"
	"strconv"
	"strings"
)

// AssociationView is the collaborator-facing adapter the matcher and
// builder read association facts through.
type AssociationView struct {
	entity Entity
}

// NewAssociationView wraps an entity.
func NewAssociationView(e Entity) AssociationView {
	return AssociationView{entity: e}
}

// Entity returns the wrapped entity.
func (v AssociationView) Entity() Entity {
	return v.entity
}

// Associations returns the entity's associations in declaration order with
// polymorphic ones removed. The collaborator is expected to have excluded
// them already; they are filtered again because a polymorphic target is
// ambiguous and must never be matched.
func (v AssociationView) Associations() []Association {
	all := v.entity.NonPolymorphicAssociations()
	out := make([]Association, 0, len(all))
	for _, a := range all {
		if a.Polymorphic || a.Target == nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Association looks up a non-polymorphic association by name.
func (v AssociationView) Association(name string) (Association, bool) {
	for _, a := range v.Associations() {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

// ScopeNames returns the zero-argument filter names the association's target
// exposes, sorted.
func (v AssociationView) ScopeNames(a Association) []string {
	var names []string
	for name, sig := range a.Target.FilterNamesAndArity() {
		if sig.Arity.IsZero() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Fingerprint summarises the association metadata the pattern table is
// built from. A changed fingerprint invalidates the table. Targets that
// implement MetadataVersioner contribute their version; others contribute
// their zero-argument filter names.
func (v AssociationView) Fingerprint() string {
	var b strings.Builder
	for _, a := range v.Associations() {
		b.WriteString(a.Name)
		b.WriteByte('>')
		b.WriteString(a.Target.Name())
		if mv, ok := a.Target.(MetadataVersioner); ok {
			b.WriteByte('@')
			b.WriteString(strconv.FormatUint(mv.MetadataVersion(), 10))
			b.WriteByte(';')
			continue
		}
		b.WriteByte('[')
		b.WriteString(strings.Join(v.ScopeNames(a), ","))
		b.WriteString("];")
	}
	return b.String()
}
