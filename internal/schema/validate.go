package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrEntityName         = "E201" // missing or malformed entity name
	ErrDuplicateEntity    = "E202" // entity declared twice
	ErrNoColumns          = "E203" // entity has no columns
	ErrDuplicateName      = "E204" // duplicate column, association or scope
	ErrInvalidAssociation = "E210" // unknown kind or missing target
	ErrUnknownTarget      = "E211" // association target entity not declared
	ErrInvalidScope       = "E220" // scope has no where and no filter
	ErrUnknownColumn      = "E221" // where clause names an undeclared column
	ErrUnknownCondition   = "E222" // where clause names an unknown condition
	ErrInvalidArg         = "E223" // where clause arg outside the scope's params
	ErrInvalidAliasScope  = "E230" // alias scope names a missing scope
	ErrNameCollision      = "E231" // local name shadows an association prefix
	ErrUnsupportedArgType = "E232" // scope arg_type is not a known type
	ErrUnknownScopeJoin   = "E233" // scope joins an undeclared association
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var validArgTypes = map[string]bool{
	"":                           true,
	string(condition.ArgText):    true,
	string(condition.ArgNumeric): true,
	string(condition.ArgDate):    true,
	string(condition.ArgBoolean): true,
}

// Validate checks a schema against vocab. It returns every problem found
// rather than stopping at the first.
//
// A scope name that starts with an association prefix is reported as a
// warning-level E231: the local filter wins and the association condition
// of the same name becomes unreachable.
func Validate(spec *ir.SchemaSpec, vocab *condition.Vocabulary) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	declared := make(map[string]bool, len(spec.Entities))
	for _, e := range spec.Entities {
		if !identPattern.MatchString(e.Name) {
			add(ErrEntityName, "entity", "invalid entity name %q", e.Name)
			continue
		}
		if declared[e.Name] {
			add(ErrDuplicateEntity, "entity."+e.Name, "entity declared more than once")
		}
		declared[e.Name] = true
	}

	for _, e := range spec.Entities {
		base := "entity." + e.Name
		if len(e.Columns) == 0 {
			add(ErrNoColumns, base+".columns", "at least one column is required")
		}

		names := make(map[string]string)
		claim := func(kind, name string) {
			if prev, ok := names[name]; ok {
				add(ErrDuplicateName, base+"."+kind, "%q already declared as %s", name, prev)
				return
			}
			names[name] = kind
		}

		columns := make(map[string]bool, len(e.Columns))
		for _, c := range e.Columns {
			claim("column", c.Name)
			columns[c.Name] = true
		}

		assocs := make(map[string]bool, len(e.Associations))
		for _, a := range e.Associations {
			field := base + ".associations." + a.Name
			claim("association", a.Name)
			assocs[a.Name] = true
			if !ir.ValidAssociationKinds[a.Kind] {
				add(ErrInvalidAssociation, field, "unknown association kind %q", a.Kind)
			}
			if a.Polymorphic {
				continue
			}
			if a.Target == "" {
				add(ErrInvalidAssociation, field, "target is required unless polymorphic")
				continue
			}
			if !declared[a.Target] {
				add(ErrUnknownTarget, field, "target entity %q is not declared", a.Target)
			}
		}

		scopes := make(map[string]ir.ScopeSpec, len(e.Scopes))
		for _, s := range e.Scopes {
			field := base + ".scopes." + s.Name
			claim("scope", s.Name)
			scopes[s.Name] = s
			if s.Filter == "" && len(s.Where) == 0 {
				add(ErrInvalidScope, field, "scope needs where conditions or a filter")
			}
			if !validArgTypes[s.ArgType] {
				add(ErrUnsupportedArgType, field, "unknown arg_type %q", s.ArgType)
			}
			for _, j := range s.Joins {
				if !assocs[j] {
					add(ErrUnknownScopeJoin, field, "joins undeclared association %q", j)
				}
			}
			for i, w := range s.Where {
				wfield := fmt.Sprintf("%s.where[%d]", field, i)
				if !columns[w.Column] {
					add(ErrUnknownColumn, wfield, "column %q is not declared", w.Column)
				}
				if _, ok := vocab.Lookup(w.Condition); !ok {
					add(ErrUnknownCondition, wfield, "unknown condition %q", w.Condition)
				}
				if w.Arg != nil && !argInRange(*w.Arg, s.Params) {
					add(ErrInvalidArg, wfield, "arg %d outside the scope's %d params", *w.Arg, s.Params)
				}
			}
		}

		for alias, target := range e.AliasScopes {
			claim("alias_scope", alias)
			if _, ok := scopes[target]; !ok {
				add(ErrInvalidAliasScope, base+".alias_scopes."+alias, "aliases undeclared scope %q", target)
			}
		}

		for name, kind := range names {
			if kind == "association" || kind == "column" {
				continue
			}
			for _, a := range e.Associations {
				if strings.HasPrefix(name, a.Name+"_") {
					add(ErrNameCollision, base+"."+name, "%s %q shadows association conditions on %q", kind, name, a.Name)
				}
			}
		}
	}

	slices.SortStableFunc(errs, func(a, b ValidationError) int {
		if c := strings.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
	return errs
}

// argInRange reports whether a where clause may read argument arg. Fixed
// scopes take 0..params-1; a variadic scope (params -n) takes 0..n-2 plus
// the splat at n-1.
func argInRange(arg, params int) bool {
	if arg < 0 {
		return false
	}
	if params < 0 {
		return arg <= -params-1
	}
	return arg < params
}

// IsWarning reports whether the error leaves the schema usable.
func (e ValidationError) IsWarning() bool {
	return e.Code == ErrNameCollision
}
