package ir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SchemaSpec is a compiled schema: every entity the catalog knows about,
// in declaration order.
type SchemaSpec struct {
	Entities []EntitySpec `json:"entities" yaml:"entities"`
}

// EntitySpec describes one entity (table) and the filters it can satisfy
// locally.
type EntitySpec struct {
	Name         string            `json:"name" yaml:"name"`
	Table        string            `json:"table" yaml:"table"`
	PrimaryKey   string            `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Columns      []ColumnSpec      `json:"columns" yaml:"columns"`
	Associations []AssociationSpec `json:"associations,omitempty" yaml:"associations,omitempty"`
	Scopes       []ScopeSpec       `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	// AliasScopes maps an alternative scope name to the scope it stands for.
	AliasScopes map[string]string `json:"alias_scopes,omitempty" yaml:"alias_scopes,omitempty"`
}

// ColumnSpec represents a column with its primitive type
// ("string", "text", "int", "bool", "date").
type ColumnSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// AssociationSpec represents a named relationship to another entity.
type AssociationSpec struct {
	Name        string `json:"name" yaml:"name"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty"`
	Kind        string `json:"kind" yaml:"kind"` // "belongs_to", "has_many", "has_one"
	ForeignKey  string `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Polymorphic bool   `json:"polymorphic,omitempty" yaml:"polymorphic,omitempty"`
}

// Association kinds.
const (
	BelongsTo = "belongs_to"
	HasMany   = "has_many"
	HasOne    = "has_one"
)

// ValidAssociationKinds defines allowed association kinds.
var ValidAssociationKinds = map[string]bool{
	BelongsTo: true,
	HasMany:   true,
	HasOne:    true,
}

// ScopeSpec is a named filter defined on an entity.
//
// A scope either lists its own Where conditions or delegates to another
// filter name through Filter (which may be an association condition, so a
// scope can traverse further associations).
type ScopeSpec struct {
	Name    string      `json:"name" yaml:"name"`
	Where   []WhereSpec `json:"where,omitempty" yaml:"where,omitempty"`
	Filter  string      `json:"filter,omitempty" yaml:"filter,omitempty"`
	Params  int         `json:"params,omitempty" yaml:"params,omitempty"`
	ArgType string      `json:"arg_type,omitempty" yaml:"arg_type,omitempty"`
	Joins   []string    `json:"joins,omitempty" yaml:"joins,omitempty"`
}

// WhereSpec is one condition inside a scope.
// When Arg is set it references the scope's positional argument (0-based);
// otherwise Value is the literal. Zero-arity conditions (null, blank) use
// neither.
type WhereSpec struct {
	Column    string  `json:"column"`
	Condition string  `json:"condition"`
	Value     IRValue `json:"value,omitempty"`
	Arg       *int    `json:"arg,omitempty"`
}

// UnmarshalYAML decodes a where entry, converting the literal value into
// an IRValue.
func (w *WhereSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Column    string `yaml:"column"`
		Condition string `yaml:"condition"`
		Value     any    `yaml:"value"`
		Arg       *int   `yaml:"arg"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	w.Column = raw.Column
	w.Condition = raw.Condition
	w.Arg = raw.Arg
	w.Value = nil
	if raw.Value != nil {
		v, err := FromGo(raw.Value)
		if err != nil {
			return fmt.Errorf("line %d: where %s value: %w", node.Line, raw.Column, err)
		}
		w.Value = v
	}
	return nil
}
