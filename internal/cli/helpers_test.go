package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

var blogSchema = "testdata/blog.yaml"

// execute runs a command built by newCmd with the given format and
// arguments and returns what it wrote to stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
