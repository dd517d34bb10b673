package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a resolution scenario.
// A scenario seeds a database from a schema and fixtures, then resolves and
// executes a sequence of filters.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to a CUE or YAML schema (file or CUE package
	// directory). Relative paths are resolved against the scenario file.
	Schema string `yaml:"schema"`

	// Fixtures are rows inserted before any step runs.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// Steps are evaluated in order.
	Steps []Step `yaml:"steps"`
}

// Fixture is a batch of rows for one entity.
type Fixture struct {
	Entity string           `yaml:"entity"`
	Rows   []map[string]any `yaml:"rows"`
}

// Step resolves one filter name on an entity and invokes it.
type Step struct {
	// Entity is the root entity the filter is called on.
	Entity string `yaml:"entity"`

	// Filter is the filter name, e.g. "comments_status_eq".
	Filter string `yaml:"filter"`

	// Args are the positional arguments passed to the filter.
	Args []any `yaml:"args,omitempty"`

	// Expect is checked against the step's trace event. If nil, no
	// validation is performed.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// Expectation lists the properties a step must exhibit. Unset fields are
// not checked.
type Expectation struct {
	// Error is the expected error code (NO_MATCH, ARITY_MISMATCH,
	// RESOLUTION_ERROR, CYCLE_DETECTED, ERROR). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Primary is the expected canonical filter name.
	Primary string `yaml:"primary,omitempty"`

	// Arity is the expected arity, e.g. "Zero" or "Fixed(1)".
	Arity string `yaml:"arity,omitempty"`

	// Joins is the expected join tree in compact form, e.g. "{comments: {user}}".
	Joins string `yaml:"joins,omitempty"`

	// IDs are the expected primary keys of matching rows, ascending.
	IDs []int64 `yaml:"ids,omitempty"`

	// Count is the expected number of matching rows.
	Count *int64 `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// The schema path is resolved relative to the file's directory. Returns an
// error if the file doesn't exist, is malformed, contains unknown fields,
// or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so typos like "expects:" fail loudly
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, f := range s.Fixtures {
		if f.Entity == "" {
			return fmt.Errorf("fixtures[%d]: entity is required", i)
		}
	}

	for i, step := range s.Steps {
		if step.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required", i)
		}
		if step.Filter == "" {
			return fmt.Errorf("steps[%d]: filter is required", i)
		}
		if step.Expect != nil && step.Expect.Count != nil && *step.Expect.Count < 0 {
			return fmt.Errorf("steps[%d].expect: count must be non-negative", i)
		}
	}

	return nil
}
