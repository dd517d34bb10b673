package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/resolver"
	"github.com/roach88/condscope/internal/schema"
	"github.com/roach88/condscope/internal/store"
	"github.com/roach88/condscope/internal/testutil"
)

// OutcomeError is recorded for failures that carry no resolution error code.
const OutcomeError = "ERROR"

// Harness is the scenario execution engine.
type Harness struct {
	catalog *schema.Catalog
	store   *store.Store
	ids     *testutil.SequenceGenerator
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and a freshly loaded
// catalog, so resolution caches never leak between scenarios.
//
// Execution flow:
// 1. Load the schema into a catalog
// 2. Create an in-memory database and its tables
// 3. Insert fixture rows
// 4. Resolve, invoke and execute each step, checking its expectation
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	catalog, err := schema.Load(scenario.Schema, condition.NewDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		catalog: catalog,
		store:   st,
		ids:     testutil.NewSequenceGenerator(scenario.Name),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	// Resolution tokens in debug logs are numbered per scenario
	ctx = resolver.WithIDGenerator(ctx, h.ids)

	if err := st.Migrate(ctx, catalog); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := h.seed(ctx, scenario.Fixtures); err != nil {
		return nil, fmt.Errorf("failed to insert fixtures: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.AddTrace(event)
		if step.Expect != nil {
			for _, msg := range checkExpectation(event, *step.Expect) {
				result.AddError(fmt.Sprintf("steps[%d] %s.%s: %s", i, step.Entity, step.Filter, msg))
			}
		}
	}

	result.Resolutions = h.ids.Count()
	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"resolutions", result.Resolutions,
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) seed(ctx context.Context, fixtures []Fixture) error {
	for _, f := range fixtures {
		entity, ok := h.catalog.Entity(f.Entity)
		if !ok {
			return fmt.Errorf("unknown entity %q", f.Entity)
		}
		for i, raw := range f.Rows {
			row := make(map[string]ir.IRValue, len(raw))
			for col, v := range raw {
				val, err := ir.FromGo(v)
				if err != nil {
					return fmt.Errorf("%s row %d column %s: %w", f.Entity, i, col, err)
				}
				row[col] = val
			}
			if err := h.store.Insert(ctx, entity, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// executeStep resolves and runs one step. Resolution and invocation
// failures become the step's outcome; only harness problems (unknown
// entity, bad arguments, SQL failures) are returned as errors.
func (h *Harness) executeStep(ctx context.Context, n int, step Step) (TraceEvent, error) {
	event := TraceEvent{Step: n, Entity: step.Entity, Filter: step.Filter}

	entity, ok := h.catalog.Entity(step.Entity)
	if !ok {
		return event, fmt.Errorf("unknown entity %q", step.Entity)
	}

	args := make([]ir.IRValue, len(step.Args))
	for i, a := range step.Args {
		v, err := ir.FromGo(a)
		if err != nil {
			return event, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = v
	}
	event.Args = args

	frag, err := entity.Filter(ctx, step.Filter, args)
	if err != nil {
		event.Outcome = Outcome(err)
		event.Message = err.Error()
		h.logger.Debug("step failed",
			"step", n,
			"filter", step.Filter,
			"outcome", event.Outcome,
		)
		return event, nil
	}

	// Resolution succeeded, so signature lookups hit the cache.
	sig, err := entity.FilterSignature(ctx, step.Filter)
	if err != nil {
		return event, err
	}
	primary, _ := entity.Resolver().PrimaryNameFor(step.Filter)

	ids, err := h.store.IDs(ctx, entity, frag)
	if err != nil {
		return event, err
	}
	count, err := h.store.Count(ctx, entity, frag)
	if err != nil {
		return event, err
	}

	event.Outcome = OutcomeOK
	event.Primary = primary
	event.Arity = sig.Arity.String()
	event.Joins = frag.Joins.String()
	event.Fragment = frag.ToCanonicalMap()
	event.IDs = ids
	event.Count = count

	h.logger.Debug("step executed",
		"step", n,
		"filter", step.Filter,
		"primary", primary,
		"count", count,
	)
	return event, nil
}

// Outcome maps an error to the code recorded in a trace. A cycle anywhere in
// the chain wins over the outer code.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if resolver.IsCycleError(err) {
		return string(resolver.ErrCodeCycleDetected)
	}
	var re *resolver.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return OutcomeError
}
