// Package harness runs filter resolution scenarios against a schema and a
// seeded in-memory database.
//
// The harness loads a schema, creates its tables, inserts fixture rows, then
// evaluates each step: the filter is resolved on the named entity, invoked
// with the step's arguments, compiled to SQL and executed. Every step is
// recorded in a trace that can be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schema/blog.yaml
//	fixtures:
//	  - entity: User
//	    rows:
//	      - {id: 1, name: Ben, active: true}
//	steps:
//	  - entity: Post
//	    filter: comments_votes_gte
//	    args: [10]
//	    expect:
//	      primary: comments_votes_greater_than_or_equal_to
//	      arity: Fixed(1)
//	      joins: "{comments}"
//	      ids: [3]
//	  - entity: Post
//	    filter: comments_nope
//	    expect:
//	      error: NO_MATCH
//
// The schema path is resolved relative to the scenario file. Expect
// clauses are optional; a step without one only contributes to the trace.
//
// # Golden Traces
//
// RunWithGolden serializes the trace with ir.MarshalCanonical and compares
// it to testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
