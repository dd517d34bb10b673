package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/condscope/internal/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Count bool // emit COUNT(DISTINCT pk) instead of SELECT DISTINCT pk
}

// SQLResult is the compiled statement for a filter.
type SQLResult struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// String renders the result for text output.
func (r SQLResult) String() string {
	if len(r.Params) == 0 {
		return r.SQL
	}
	parts := make([]string, len(r.Params))
	for i, p := range r.Params {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return r.SQL + "\n-- params: " + strings.Join(parts, ", ")
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <schema> <entity> <filter> [args...]",
		Short: "Compile a filter to SQL",
		Long: `Resolve and invoke a filter, then print the SQLite statement that
selects the matching primary keys of the entity.

Examples:
  condscope sql blog.yaml Post comments_status_eq published
  condscope sql blog.yaml Post author_enabled --count`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], args[1], args[2], args[3:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Count, "count", false, "emit a COUNT query")

	return cmd
}

func runSQL(opts *SQLOptions, schemaPath, entityName, name string, raw []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	call, err := prepareFilter(ctx, schemaPath, entityName, name, raw)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	frag, err := call.entity.Filter(ctx, name, call.args)
	if err != nil {
		return formatter.Fail(err, nil)
	}

	compiler := querysql.NewSQLCompiler()
	var q querysql.Query
	if opts.Count {
		q, err = compiler.Count(call.entity, frag)
	} else {
		q, err = compiler.Select(call.entity, frag)
	}
	if err != nil {
		return formatter.Fail(&CommandError{Code: ErrCodeQueryFailed, Message: "failed to compile SQL", Err: err}, nil)
	}

	params := q.Params
	if params == nil {
		params = []any{}
	}
	return formatter.Success(SQLResult{SQL: q.SQL, Params: params})
}
