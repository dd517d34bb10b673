package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_AssociationConditions(t *testing.T) {
	err := RunWithGolden(t, loadTestScenario(t, "blog_association_conditions"))
	require.NoError(t, err)
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "blog_edge_cases")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalTrace_OmitsResultFieldsOnFailure(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Step: 1, Entity: "Post", Filter: "nope", Outcome: "NO_MATCH", Message: "ignored"})

	out, err := MarshalTrace("failure", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"failure","trace":[{"entity":"Post","filter":"nope","outcome":"NO_MATCH","step":1}]}`,
		string(out))
}
