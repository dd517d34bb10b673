package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condscope/internal/ir"
)

func TestValidate_WellFormedFragment(t *testing.T) {
	f := Fragment{
		Conditions: Conditions{
			Col("comments", "status"): Equals{Value: ir.IRString("published")},
			Col("comments", "votes"):  Compare{Op: OpGreaterEqual, Value: ir.IRInt(3)},
		},
		Joins: JoinTree{"comments": {"author": {}}},
	}

	result := Validate(f)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
}

func TestValidate_EmptyFragment(t *testing.T) {
	result := Validate(Fragment{})
	assert.True(t, result.IsValid, "no conditions and no joins is vacuously valid")
}

func TestValidate_NullEquality(t *testing.T) {
	f := Fragment{Conditions: Conditions{Col("users", "name"): Equals{Value: ir.IRNull{}}}}

	result := Validate(f)

	assert.False(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "use IsNull")
}

func TestValidate_UnknownCompareOp(t *testing.T) {
	f := Fragment{Conditions: Conditions{Col("users", "age"): Compare{Op: "<>", Value: ir.IRInt(1)}}}

	result := Validate(f)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `unknown compare operator "<>"`)
}

func TestValidate_EmptyInAndAny(t *testing.T) {
	f := Fragment{Conditions: Conditions{
		Col("a", "x"): In{},
		Col("a", "y"): Any{},
	}}

	result := Validate(f)

	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "empty IN list")
	assert.Contains(t, result.Warnings[1], "empty OR group")
}

func TestValidate_NestedAnd(t *testing.T) {
	f := Fragment{Conditions: Conditions{
		Col("a", "x"): And{Predicates: []Predicate{
			Equals{Value: ir.IRInt(1)},
			Equals{Value: ir.IRNull{}},
		}},
	}}

	result := Validate(f)
	require.Len(t, result.Warnings, 1)
}

func TestValidate_EmptyColumnAndJoinNames(t *testing.T) {
	f := Fragment{
		Conditions: Conditions{Col("a", ""): IsNull{}},
		Joins:      JoinTree{"": {}},
	}

	result := Validate(f)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Warnings, 2)
}
