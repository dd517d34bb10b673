package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/condscope/internal/store"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	DBPath  string // SQLite database path
	ShowIDs bool   // also list matching primary keys
}

// CountResult holds the rows matched by a filter.
type CountResult struct {
	Entity string  `json:"entity"`
	Filter string  `json:"filter"`
	Count  int64   `json:"count"`
	IDs    []int64 `json:"ids,omitempty"`
}

// String renders the result for text output.
func (r CountResult) String() string {
	s := fmt.Sprintf("%s.%s: %d", r.Entity, r.Filter, r.Count)
	if r.IDs != nil {
		s += fmt.Sprintf("\nids: %v", r.IDs)
	}
	return s
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <schema> <entity> <filter> [args...]",
		Short: "Count rows matching a filter",
		Long: `Resolve and invoke a filter and run it against a SQLite database.

Tables for every entity are created if they do not exist, so an empty
database counts zero rows.

Examples:
  condscope count blog.yaml Post comments_published --db ./blog.db
  condscope count blog.yaml Post comments_votes_gte 10 --db ./blog.db --ids`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], args[1], args[2], args[3:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", ":memory:", "SQLite database path")
	cmd.Flags().BoolVar(&opts.ShowIDs, "ids", false, "list matching primary keys")

	return cmd
}

func runCount(opts *CountOptions, schemaPath, entityName, name string, raw []string, cmd *cobra.Command) error {
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

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(&CommandError{Code: ErrCodeNotFound, Message: "failed to open database", Err: err}, nil)
	}
	defer st.Close()

	formatter.VerboseLog("Opened database %s", opts.DBPath)

	if err := st.Migrate(ctx, call.catalog); err != nil {
		return formatter.Fail(&CommandError{Code: ErrCodeQueryFailed, Message: "failed to create tables", Err: err}, nil)
	}

	result := CountResult{Entity: call.entity.Name(), Filter: name}
	result.Count, err = st.Count(ctx, call.entity, frag)
	if err != nil {
		return formatter.Fail(&CommandError{Code: ErrCodeQueryFailed, Message: "count failed", Err: err}, nil)
	}
	if opts.ShowIDs {
		result.IDs, err = st.IDs(ctx, call.entity, frag)
		if err != nil {
			return formatter.Fail(&CommandError{Code: ErrCodeQueryFailed, Message: "id query failed", Err: err}, nil)
		}
	}

	return formatter.Success(result)
}
