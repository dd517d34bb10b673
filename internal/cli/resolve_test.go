package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AliasColumnCondition(t *testing.T) {
	out, err := execute(t, NewResolveCommand, "text", blogSchema, "Post", "comments_status_eq", "published")
	require.NoError(t, err)

	assert.Contains(t, out, "Post.comments_status_eq")
	assert.Contains(t, out, "association: comments")
	assert.Contains(t, out, "condition:   status_eq (alias)")
	assert.Contains(t, out, "primary:     comments_status_equals")
	assert.Contains(t, out, "signature:   Fixed(1) text")
	assert.Contains(t, out, "joins:       {comments}")
	assert.Contains(t, out, `where:       comments.status = "published"`)
}

func TestResolve_WithoutArgsShowsSignatureOnly(t *testing.T) {
	out, err := execute(t, NewResolveCommand, "text", blogSchema, "Post", "comments_votes_gt")
	require.NoError(t, err)

	assert.Contains(t, out, "signature:   Fixed(1) numeric")
	assert.NotContains(t, out, "joins:")
}

func TestResolve_ZeroArityIsInvoked(t *testing.T) {
	out, err := execute(t, NewResolveCommand, "json", blogSchema, "Post", "comments_user_name_null")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ResolveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Invoked)
	assert.False(t, resp.Data.Alias)
	assert.Equal(t, "comments", resp.Data.Association)
	assert.Equal(t, "user_name_null", resp.Data.Target)
	assert.Equal(t, "Zero", resp.Data.Arity)
	assert.Equal(t, "{comments: {user}}", resp.Data.Joins)
	assert.Equal(t, []string{"users.name IS NULL"}, resp.Data.Conditions)
	assert.NotEmpty(t, resp.Data.Fragment)
}

func TestResolve_LocalFilter(t *testing.T) {
	out, err := execute(t, NewResolveCommand, "text", blogSchema, "Post", "with_title")
	require.NoError(t, err)

	assert.Contains(t, out, "local filter")
	assert.Contains(t, out, "primary:     titled")
	assert.Contains(t, out, "joins:       {}")
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		code     string
		exitCode int
	}{
		{"no match", []string{blogSchema, "Post", "comments_nope"}, ErrCodeNoMatch, ExitFailure},
		{"polymorphic", []string{blogSchema, "Post", "taggable_name_eq", "x"}, ErrCodeNoMatch, ExitFailure},
		{"arity", []string{blogSchema, "Post", "comments_status_eq", "a", "b"}, ErrCodeArity, ExitFailure},
		{"bad numeric arg", []string{blogSchema, "Post", "comments_votes_gt", "many"}, ErrCodeBadArgument, ExitCommandError},
		{"unknown entity", []string{blogSchema, "Nope", "x"}, ErrCodeUnknownEntity, ExitCommandError},
		{"missing schema", []string{"testdata/missing.yaml", "Post", "x"}, ErrCodeNotFound, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewResolveCommand, "json", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
