package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condscope/internal/ir"
)

func TestPredicate_SealedTypeSwitch(t *testing.T) {
	preds := []Predicate{
		Equals{Value: ir.IRString("a")},
		NotEquals{Value: ir.IRInt(1)},
		Compare{Op: OpGreater, Value: ir.IRInt(5)},
		Like{Pattern: "%a%"},
		IsNull{},
		Blank{Negate: true},
		In{Values: []ir.IRValue{ir.IRInt(1)}},
		Any{},
		And{},
	}

	for _, p := range preds {
		switch p.(type) {
		case Equals, NotEquals, Compare, Like, IsNull, Blank, In, Any, And:
			// Expected
		default:
			t.Fatalf("unexpected predicate type %T", p)
		}
	}
}

func TestColumn_String(t *testing.T) {
	assert.Equal(t, "comments.status", Col("comments", "status").String())
	assert.Equal(t, "status", Column{Name: "status"}.String())
}

func TestJoinTree_NestStrictly(t *testing.T) {
	inner := Leaf("author")
	nested := inner.Nest("comments")

	assert.Equal(t, JoinTree{"comments": {"author": {}}}, nested)
	assert.Equal(t, 2, nested.Depth())
	// Never flattened to {comments, author}
	_, flattened := nested["author"]
	assert.False(t, flattened)
}

func TestJoinTree_NestEmptyIsLeaf(t *testing.T) {
	var none JoinTree
	assert.Equal(t, Leaf("comments"), none.Nest("comments"))
}

func TestJoinTree_NestCopies(t *testing.T) {
	inner := Leaf("author")
	nested := inner.Nest("comments")

	inner["extra"] = JoinTree{}
	assert.NotContains(t, nested["comments"], "extra", "Nest must not alias its input")
}

func TestJoinTree_MergeKeepsBranches(t *testing.T) {
	a := JoinTree{"comments": {"author": {}}}
	b := JoinTree{"comments": {"post": {}}, "tags": {}}

	merged := a.Merge(b)

	assert.Equal(t, JoinTree{
		"comments": {"author": {}, "post": {}},
		"tags":     {},
	}, merged)
	// Inputs untouched
	assert.Equal(t, JoinTree{"comments": {"author": {}}}, a)
}

func TestJoinTree_MergeLeafWithBranch(t *testing.T) {
	merged := Leaf("comments").Merge(JoinTree{"comments": {"author": {}}})
	assert.Equal(t, JoinTree{"comments": {"author": {}}}, merged)
}

func TestJoinTree_Paths(t *testing.T) {
	tree := JoinTree{"c": {}, "a": {"b": {}}}
	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"c"}}, tree.Paths())
}

func TestJoinTree_String(t *testing.T) {
	assert.Equal(t, "{}", JoinTree{}.String())
	assert.Equal(t, "{comments: {author}, tags}", JoinTree{"comments": {"author": {}}, "tags": {}}.String())
}

func TestConditions_MergeConjoins(t *testing.T) {
	col := Col("comments", "votes")
	a := Conditions{col: Compare{Op: OpGreater, Value: ir.IRInt(1)}}
	b := Conditions{col: Compare{Op: OpLess, Value: ir.IRInt(10)}}

	merged := a.Merge(b)

	require.Len(t, merged, 1)
	and, ok := merged[col].(And)
	require.True(t, ok)
	assert.Len(t, and.Predicates, 2)

	// Further merges flatten into the same And
	c := Conditions{col: NotEquals{Value: ir.IRInt(5)}}
	again := merged.Merge(c)[col].(And)
	assert.Len(t, again.Predicates, 3)
}

func TestConditions_Columns_Sorted(t *testing.T) {
	conds := Conditions{
		Col("posts", "title"):   Equals{Value: ir.IRString("x")},
		Col("comments", "body"): IsNull{},
	}
	assert.Equal(t, []Column{Col("comments", "body"), Col("posts", "title")}, conds.Columns())
}

func TestFragment_Merge(t *testing.T) {
	a := Fragment{
		Conditions: Conditions{Col("comments", "status"): Equals{Value: ir.IRString("published")}},
		Joins:      Leaf("comments"),
	}
	b := Fragment{
		Conditions: Conditions{Col("users", "active"): Equals{Value: ir.IRBool(true)}},
		Joins:      JoinTree{"comments": {"author": {}}},
	}

	merged := a.Merge(b)
	assert.Len(t, merged.Conditions, 2)
	assert.Equal(t, JoinTree{"comments": {"author": {}}}, merged.Joins)
}

func TestFragment_ToCanonicalMap(t *testing.T) {
	f := Fragment{
		Conditions: Conditions{Col("comments", "status"): Equals{Value: ir.IRString("published")}},
		Joins:      Leaf("comments"),
	}

	out, err := ir.MarshalCanonical(f.ToCanonicalMap())
	require.NoError(t, err)
	assert.Equal(t,
		`{"conditions":{"comments.status":{"op":"equals","value":"published"}},"joins":{"comments":{}}}`,
		string(out))
}

func TestFragment_ToCanonicalMapNested(t *testing.T) {
	f := Fragment{
		Conditions: Conditions{
			Col("users", "name"):      Equals{Value: ir.IRString("Rene\u0301")},
			Col("comments", "status"): In{Values: []ir.IRValue{ir.IRString("draft"), ir.IRNull{}}},
			Col("comments", "votes"): And{Predicates: []Predicate{
				Compare{Op: OpGreaterEqual, Value: ir.IRInt(10)},
				IsNull{Negate: true},
			}},
		},
		Joins: Leaf("user").Nest("comments"),
	}

	out, err := ir.MarshalCanonical(f.ToCanonicalMap())
	require.NoError(t, err)
	assert.Equal(t,
		`{"conditions":{"comments.status":{"op":"in","value":["draft","NULL"]},`+
			`"comments.votes":{"op":"and","value":[{"op":">=","value":10},{"op":"not_null"}]},`+
			`"users.name":{"op":"equals","value":"`+"Ren\u00e9"+`"}},"joins":{"comments":{"user":{}}}}`,
		string(out))
}

func TestFormatPredicate(t *testing.T) {
	col := Col("comments", "author_name")
	tests := []struct {
		name string
		pred Predicate
		want string
	}{
		{"equals", Equals{Value: ir.IRString("Alice")}, `comments.author_name = "Alice"`},
		{"like", Like{Pattern: "%Al%"}, `comments.author_name LIKE "%Al%"`},
		{"not null", IsNull{Negate: true}, "comments.author_name IS NOT NULL"},
		{"in", In{Values: []ir.IRValue{ir.IRString("a"), ir.IRString("b")}}, `comments.author_name IN ("a", "b")`},
		{"any", Any{Predicates: []Predicate{Like{Pattern: "a%"}, Like{Pattern: "b%"}}},
			`(comments.author_name LIKE "a%" OR comments.author_name LIKE "b%")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPredicate(col, tt.pred))
		})
	}
}
