package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/schema"
)

// loadSpec reads a schema file or CUE package directory without
// validating it.
func loadSpec(path string) (*ir.SchemaSpec, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &CommandError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	}
	spec, err := schema.LoadFile(path)
	if err != nil {
		var ce *schema.CompileError
		if errors.As(err, &ce) {
			return nil, &CommandError{Code: ErrCodeLoadFailed, Message: "schema compilation failed", Err: ce}
		}
		return nil, &CommandError{Code: ErrCodeLoadFailed, Message: "failed to load schema", Err: err}
	}
	return spec, nil
}

// loadCatalog loads and validates a schema with the default vocabulary.
func loadCatalog(path string) (*schema.Catalog, error) {
	spec, err := loadSpec(path)
	if err != nil {
		return nil, err
	}
	catalog, err := schema.NewCatalog(spec, condition.Default())
	if err != nil {
		return nil, &CommandError{Code: ErrCodeInvalidSchema, Message: "invalid schema", Err: err}
	}
	return catalog, nil
}

// lookupEntity returns the named entity or an E010 error.
func lookupEntity(catalog *schema.Catalog, name string) (*schema.Entity, error) {
	entity, ok := catalog.Entity(name)
	if !ok {
		return nil, &CommandError{Code: ErrCodeUnknownEntity, Message: fmt.Sprintf("unknown entity %q", name)}
	}
	return entity, nil
}

// filterCall is a resolved filter plus its parsed arguments.
type filterCall struct {
	catalog   *schema.Catalog
	entity    *schema.Entity
	name      string
	signature condition.Signature
	args      []ir.IRValue
}

// prepareFilter loads the schema, resolves name on entity and parses raw
// arguments according to the filter's argument type.
func prepareFilter(ctx context.Context, schemaPath, entityName, name string, raw []string) (*filterCall, error) {
	catalog, err := loadCatalog(schemaPath)
	if err != nil {
		return nil, err
	}
	entity, err := lookupEntity(catalog, entityName)
	if err != nil {
		return nil, err
	}
	sig, err := entity.FilterSignature(ctx, name)
	if err != nil {
		return nil, err
	}
	args, err := parseArgs(raw, sig.ArgType)
	if err != nil {
		return nil, err
	}
	return &filterCall{catalog: catalog, entity: entity, name: name, signature: sig, args: args}, nil
}

// parseArgs converts command-line arguments using the filter's advisory
// argument type.
func parseArgs(raw []string, argType condition.ArgType) ([]ir.IRValue, error) {
	args := make([]ir.IRValue, len(raw))
	for i, s := range raw {
		v, err := ir.ParseArg(s, string(argType))
		if err != nil {
			return nil, &CommandError{Code: ErrCodeBadArgument, Message: fmt.Sprintf("argument %d", i+1), Err: err}
		}
		args[i] = v
	}
	return args, nil
}
