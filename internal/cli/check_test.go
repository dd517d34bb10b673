package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCheck_ValidSchema(t *testing.T) {
	out, err := execute(t, NewCheckCommand, "text", blogSchema)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid (3 entities: User, Post, Comment)")
}

func TestCheck_ValidSchemaJSON(t *testing.T) {
	out, err := execute(t, NewCheckCommand, "json", blogSchema)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"User", "Post", "Comment"}, resp.Data.Entities)
}

func TestCheck_CUEPackage(t *testing.T) {
	dir := filepath.Join("..", "schema", "testdata", "blog")
	out, err := execute(t, NewCheckCommand, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema valid")
}

func TestCheck_WarningsDoNotFail(t *testing.T) {
	path := writeSchema(t, `
entities:
  - name: Post
    columns:
      - {name: id, type: int}
    associations:
      - {name: comments, target: Comment, kind: has_many}
    scopes:
      - name: comments_recent
        where:
          - {column: id, condition: greater_than, value: 10}
  - name: Comment
    columns:
      - {name: id, type: int}
      - {name: post_id, type: int}
`)
	out, err := execute(t, NewCheckCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning [E231]")
	assert.Contains(t, out, "Schema valid")
}

func TestCheck_InvalidSchema(t *testing.T) {
	path := writeSchema(t, `
entities:
  - name: Post
    columns:
      - {name: id, type: int}
    associations:
      - {name: author, target: Ghost, kind: belongs_to}
    scopes:
      - name: titled
        where:
          - {column: title, condition: not_blank}
`)
	out, err := execute(t, NewCheckCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInvalidSchema)
	assert.Contains(t, out, "Error [E006]: 2 validation error(s)")
	assert.Contains(t, out, "[E211]")
	assert.Contains(t, out, "[E221]")
}

func TestCheck_LoadErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := execute(t, NewCheckCommand, "text", "testdata/missing.yaml")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), ErrCodeNotFound)
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeSchema(t, "entities: [\n")
		out, err := execute(t, NewCheckCommand, "text", path)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E004]")
	})
}
