package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

// InvalidSchemaError reports every validation error that blocked a
// catalog from being built.
type InvalidSchemaError struct {
	Errors []ValidationError
}

func (e *InvalidSchemaError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid schema: %s", strings.Join(msgs, "; "))
}

// Catalog holds the compiled entities of one schema.
type Catalog struct {
	spec     *ir.SchemaSpec
	vocab    *condition.Vocabulary
	entities map[string]*Entity
	order    []*Entity
	warnings []ValidationError
}

// NewCatalog validates spec and compiles it. A nil vocab selects
// condition.Default().
func NewCatalog(spec *ir.SchemaSpec, vocab *condition.Vocabulary) (*Catalog, error) {
	if vocab == nil {
		vocab = condition.Default()
	}

	var errs, warnings []ValidationError
	for _, ve := range Validate(spec, vocab) {
		if ve.IsWarning() {
			warnings = append(warnings, ve)
			continue
		}
		errs = append(errs, ve)
	}
	if len(errs) > 0 {
		return nil, &InvalidSchemaError{Errors: errs}
	}
	for _, w := range warnings {
		slog.Warn("schema warning", "field", w.Field, "code", w.Code, "message", w.Message)
	}

	c := &Catalog{
		spec:     spec,
		vocab:    vocab,
		entities: make(map[string]*Entity, len(spec.Entities)),
		warnings: warnings,
	}
	for _, es := range spec.Entities {
		e := newEntity(es, vocab, c)
		c.entities[es.Name] = e
		c.order = append(c.order, e)
	}
	for _, e := range c.order {
		e.link()
	}

	slog.Debug("schema catalog built", "entities", len(c.order))
	return c, nil
}

// Load reads a schema file or CUE directory and builds its catalog.
func Load(path string, vocab *condition.Vocabulary) (*Catalog, error) {
	spec, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(spec, vocab)
}

// Entity returns the named entity.
func (c *Catalog) Entity(name string) (*Entity, bool) {
	e, ok := c.entities[name]
	return e, ok
}

// Entities returns every entity in declaration order.
func (c *Catalog) Entities() []*Entity {
	return append([]*Entity(nil), c.order...)
}

// Spec returns the schema the catalog was built from.
func (c *Catalog) Spec() *ir.SchemaSpec {
	return c.spec
}

// Vocabulary returns the condition vocabulary in use.
func (c *Catalog) Vocabulary() *condition.Vocabulary {
	return c.vocab
}

// Warnings returns validation findings that did not block the build.
func (c *Catalog) Warnings() []ValidationError {
	return append([]ValidationError(nil), c.warnings...)
}

// Filter invokes name on the named entity.
func (c *Catalog) Filter(ctx context.Context, entity, name string, args []ir.IRValue) (queryir.Fragment, error) {
	e, ok := c.entities[entity]
	if !ok {
		return queryir.Fragment{}, fmt.Errorf("unknown entity %q", entity)
	}
	return e.Filter(ctx, name, args)
}
