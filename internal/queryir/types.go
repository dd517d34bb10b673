package queryir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/condscope/internal/ir"
)

// Column is a table-qualified column reference.
type Column struct {
	Table string
	Name  string
}

// Col builds a Column.
func Col(table, name string) Column {
	return Column{Table: table, Name: name}
}

// String renders the column as "table.name" (or "name" when unqualified).
func (c Column) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Predicate represents a condition on a single column.
//
// This is a sealed interface - only types in this package implement it.
// The column a predicate applies to is the key it is stored under in
// Fragment.Conditions.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches column = value.
type Equals struct {
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals matches column != value.
type NotEquals struct {
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// Comparison operators accepted by Compare.
const (
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
)

// ValidCompareOps defines allowed Compare operators.
var ValidCompareOps = map[string]bool{
	OpLess:         true,
	OpLessEqual:    true,
	OpGreater:      true,
	OpGreaterEqual: true,
}

// Compare matches column <op> value.
type Compare struct {
	Op    string
	Value ir.IRValue
}

func (Compare) predicateNode() {}

// Like matches column LIKE pattern (or NOT LIKE when Negate is set).
// Pattern uses SQL wildcards: % and _.
type Like struct {
	Pattern string
	Negate  bool
}

func (Like) predicateNode() {}

// IsNull matches column IS NULL (or IS NOT NULL when Negate is set).
type IsNull struct {
	Negate bool
}

func (IsNull) predicateNode() {}

// Blank matches NULL or empty-string columns (or neither, when Negate is set).
type Blank struct {
	Negate bool
}

func (Blank) predicateNode() {}

// In matches column IN (values) (or NOT IN when Negate is set).
type In struct {
	Values []ir.IRValue
	Negate bool
}

func (In) predicateNode() {}

// Any matches when at least one of Predicates holds (OR).
// Used by the "_any" condition family.
type Any struct {
	Predicates []Predicate
}

func (Any) predicateNode() {}

// And matches when all Predicates hold. Empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Conditions maps a column to the predicate it must satisfy.
type Conditions map[Column]Predicate

// Columns returns the condition columns in deterministic order.
func (c Conditions) Columns() []Column {
	cols := make([]Column, 0, len(c))
	for col := range c {
		cols = append(cols, col)
	}
	slices.SortFunc(cols, func(a, b Column) int {
		return strings.Compare(a.String(), b.String())
	})
	return cols
}

// Clone returns a shallow copy of the condition map. Predicates are values
// and never mutated in place, so sharing them is safe.
func (c Conditions) Clone() Conditions {
	if c == nil {
		return Conditions{}
	}
	out := make(Conditions, len(c))
	for col, p := range c {
		out[col] = p
	}
	return out
}

// Merge combines two condition maps. Two predicates on the same column
// are conjoined with And.
func (c Conditions) Merge(other Conditions) Conditions {
	out := c.Clone()
	for col, p := range other {
		existing, ok := out[col]
		if !ok {
			out[col] = p
			continue
		}
		out[col] = conjoin(existing, p)
	}
	return out
}

func conjoin(a, b Predicate) Predicate {
	var preds []Predicate
	for _, p := range []Predicate{a, b} {
		if and, ok := p.(And); ok {
			preds = append(preds, and.Predicates...)
			continue
		}
		preds = append(preds, p)
	}
	return And{Predicates: preds}
}

// JoinTree is a nested mapping from association name to the joins made
// through it. A nil or empty child is a leaf join.
type JoinTree map[string]JoinTree

// Leaf returns a tree joining a single association.
func Leaf(assoc string) JoinTree {
	return JoinTree{assoc: JoinTree{}}
}

// Nest places t one level under assoc: {assoc: t}. An empty t yields a
// leaf join on assoc. t is copied, never aliased.
func (t JoinTree) Nest(assoc string) JoinTree {
	return JoinTree{assoc: t.Clone()}
}

// IsEmpty reports whether the tree joins nothing.
func (t JoinTree) IsEmpty() bool {
	return len(t) == 0
}

// Clone deep-copies the tree.
func (t JoinTree) Clone() JoinTree {
	out := make(JoinTree, len(t))
	for k, child := range t {
		out[k] = child.Clone()
	}
	return out
}

// Merge combines two trees by path concatenation. Shared prefixes are merged
// recursively; no branch from either side is lost.
func (t JoinTree) Merge(other JoinTree) JoinTree {
	out := t.Clone()
	for k, child := range other {
		if existing, ok := out[k]; ok {
			out[k] = existing.Merge(child)
			continue
		}
		out[k] = child.Clone()
	}
	return out
}

// Keys returns the association names at this level in sorted order.
func (t JoinTree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Paths returns every root-to-node path in depth-first, sorted order.
// {a: {b: {}}, c: {}} yields [[a] [a b] [c]].
func (t JoinTree) Paths() [][]string {
	var paths [][]string
	var walk func(prefix []string, node JoinTree)
	walk = func(prefix []string, node JoinTree) {
		for _, k := range node.Keys() {
			path := append(slices.Clone(prefix), k)
			paths = append(paths, path)
			walk(path, node[k])
		}
	}
	walk(nil, t)
	return paths
}

// Depth returns the longest path length.
func (t JoinTree) Depth() int {
	depth := 0
	for _, child := range t {
		depth = max(depth, 1+child.Depth())
	}
	return depth
}

// String renders the tree compactly: {comments: {author}}.
func (t JoinTree) String() string {
	if t.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, len(t))
	for _, k := range t.Keys() {
		if t[k].IsEmpty() {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, t[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Fragment is the combined conditions and join structure produced for a
// filter.
type Fragment struct {
	Conditions Conditions
	Joins      JoinTree
}

// Merge combines two fragments, conjoining conditions and merging joins.
func (f Fragment) Merge(other Fragment) Fragment {
	return Fragment{
		Conditions: f.Conditions.Merge(other.Conditions),
		Joins:      f.Joins.Merge(other.Joins),
	}
}

// NativeFragment is the shape an entity's own filter dispatcher returns.
// Joins may be nil. ReadOnly marks fragments that must not be merged into
// a composed filter without being copied first.
type NativeFragment struct {
	Conditions Conditions
	Joins      JoinTree
	ReadOnly   bool
}
