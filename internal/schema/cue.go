package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/condscope/internal/ir"
)

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDir loads every CUE file in dir as one instance and compiles the
// "entity" struct it defines.
func LoadDir(dir string) (*ir.SchemaSpec, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", formatCUEError(inst.Err))
	}

	value := cuecontext.New().BuildInstance(inst)
	return CompileSchema(value)
}

// LoadCUE compiles CUE source text. filename is used in error positions.
func LoadCUE(src []byte, filename string) (*ir.SchemaSpec, error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	return CompileSchema(value)
}

// CompileSchema parses a CUE value holding an "entity" struct.
func CompileSchema(v cue.Value) (*ir.SchemaSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "at least one entity is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SchemaSpec{}
	for iter.Next() {
		entity, err := compileEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Entities = append(spec.Entities, *entity)
	}
	return spec, nil
}

func compileEntity(name string, v cue.Value) (*ir.EntitySpec, error) {
	entity := &ir.EntitySpec{Name: name}

	var err error
	if entity.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if entity.PrimaryKey, err = optionalString(v, "primary_key"); err != nil {
		return nil, err
	}

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.columns", name),
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	colIter, err := columnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for colIter.Next() {
		typ, err := colIter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		entity.Columns = append(entity.Columns, ir.ColumnSpec{Name: colIter.Label(), Type: typ})
	}

	if entity.Associations, err = compileAssociations(name, v); err != nil {
		return nil, err
	}
	if entity.Scopes, err = compileScopes(name, v); err != nil {
		return nil, err
	}

	aliasVal := v.LookupPath(cue.ParsePath("alias_scopes"))
	if aliasVal.Exists() {
		aliasIter, err := aliasVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		entity.AliasScopes = make(map[string]string)
		for aliasIter.Next() {
			target, err := aliasIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			entity.AliasScopes[aliasIter.Label()] = target
		}
	}

	return entity, nil
}

func compileAssociations(entity string, v cue.Value) ([]ir.AssociationSpec, error) {
	assocVal := v.LookupPath(cue.ParsePath("associations"))
	if !assocVal.Exists() {
		return nil, nil
	}
	iter, err := assocVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var assocs []ir.AssociationSpec
	for iter.Next() {
		av := iter.Value()
		assoc := ir.AssociationSpec{Name: iter.Label()}

		if assoc.Target, err = optionalString(av, "target"); err != nil {
			return nil, err
		}
		if assoc.Kind, err = optionalString(av, "kind"); err != nil {
			return nil, err
		}
		if assoc.ForeignKey, err = optionalString(av, "foreign_key"); err != nil {
			return nil, err
		}
		if polyVal := av.LookupPath(cue.ParsePath("polymorphic")); polyVal.Exists() {
			if assoc.Polymorphic, err = polyVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if assoc.Kind == "" {
			return nil, &CompileError{
				Field:   fmt.Sprintf("entity.%s.associations.%s.kind", entity, assoc.Name),
				Message: "association kind is required",
				Pos:     av.Pos(),
			}
		}
		assocs = append(assocs, assoc)
	}
	return assocs, nil
}

func compileScopes(entity string, v cue.Value) ([]ir.ScopeSpec, error) {
	scopesVal := v.LookupPath(cue.ParsePath("scopes"))
	if !scopesVal.Exists() {
		return nil, nil
	}
	iter, err := scopesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var scopes []ir.ScopeSpec
	for iter.Next() {
		sv := iter.Value()
		scope := ir.ScopeSpec{Name: iter.Label()}

		if scope.Filter, err = optionalString(sv, "filter"); err != nil {
			return nil, err
		}
		if scope.ArgType, err = optionalString(sv, "arg_type"); err != nil {
			return nil, err
		}
		if paramsVal := sv.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
			n, err := paramsVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			scope.Params = int(n)
		}
		if joinsVal := sv.LookupPath(cue.ParsePath("joins")); joinsVal.Exists() {
			joinIter, err := joinsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for joinIter.Next() {
				j, err := joinIter.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				scope.Joins = append(scope.Joins, j)
			}
		}
		if whereVal := sv.LookupPath(cue.ParsePath("where")); whereVal.Exists() {
			whereIter, err := whereVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for whereIter.Next() {
				w, err := compileWhere(whereIter.Value())
				if err != nil {
					return nil, err
				}
				scope.Where = append(scope.Where, w)
			}
		}

		if scope.Filter == "" && len(scope.Where) == 0 {
			return nil, &CompileError{
				Field:   fmt.Sprintf("entity.%s.scopes.%s", entity, scope.Name),
				Message: "scope needs where conditions or a filter",
				Pos:     sv.Pos(),
			}
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func compileWhere(v cue.Value) (ir.WhereSpec, error) {
	var w ir.WhereSpec
	var err error

	if w.Column, err = optionalString(v, "column"); err != nil {
		return w, err
	}
	if w.Condition, err = optionalString(v, "condition"); err != nil {
		return w, err
	}
	if w.Column == "" || w.Condition == "" {
		return w, &CompileError{
			Field:   "where",
			Message: "column and condition are required",
			Pos:     v.Pos(),
		}
	}

	if argVal := v.LookupPath(cue.ParsePath("arg")); argVal.Exists() {
		n, err := argVal.Int64()
		if err != nil {
			return w, formatCUEError(err)
		}
		idx := int(n)
		w.Arg = &idx
	}
	if valueVal := v.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
		if w.Value, err = compileValue(valueVal); err != nil {
			return w, err
		}
	}
	return w, nil
}

// compileValue converts a concrete CUE literal into an IRValue.
// Floats are rejected; IR values are integers only.
func compileValue(v cue.Value) (ir.IRValue, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var arr ir.IRArray
		for iter.Next() {
			elem, err := compileValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float values are not supported - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
