package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/condscope/internal/ir"
	"github.com/roach88/condscope/internal/queryir"
)

// ResolveResult describes how a filter name was resolved and, when it was
// invoked, the fragment it produced.
type ResolveResult struct {
	Entity      string         `json:"entity"`
	Filter      string         `json:"filter"`
	Local       bool           `json:"local"`
	Association string         `json:"association,omitempty"`
	Target      string         `json:"target_condition,omitempty"`
	Alias       bool           `json:"alias,omitempty"`
	Primary     string         `json:"primary"`
	Arity       string         `json:"arity"`
	ArgType     string         `json:"arg_type"`
	Args        []string       `json:"args,omitempty"`
	Invoked     bool           `json:"invoked"`
	Joins       string         `json:"joins,omitempty"`
	Conditions  []string       `json:"conditions,omitempty"`
	Fragment    map[string]any `json:"fragment,omitempty"`
}

// String renders the result for text output.
func (r ResolveResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s\n", r.Entity, r.Filter)
	if r.Local {
		fmt.Fprintf(&b, "  local filter\n")
	} else {
		fmt.Fprintf(&b, "  association: %s\n", r.Association)
		fmt.Fprintf(&b, "  condition:   %s", r.Target)
		if r.Alias {
			fmt.Fprintf(&b, " (alias)")
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintf(&b, "  primary:     %s\n", r.Primary)
	fmt.Fprintf(&b, "  signature:   %s %s", r.Arity, r.ArgType)
	if !r.Invoked {
		return b.String()
	}
	fmt.Fprintf(&b, "\n  joins:       %s", r.Joins)
	for _, c := range r.Conditions {
		fmt.Fprintf(&b, "\n  where:       %s", c)
	}
	return b.String()
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <schema> <entity> <filter> [args...]",
		Short: "Show how a filter name resolves",
		Long: `Decompose a filter name on an entity and print its canonical name and
signature. The filter is invoked when it takes no arguments or when
arguments are given, and the resulting joins and conditions are printed.

Examples:
  condscope resolve ./schema Post comments_status_eq published
  condscope resolve blog.yaml Post comments_user_name_null
  condscope resolve blog.yaml Post comments_votes_gte 10 --format json`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], args[1], args[2], args[3:], cmd)
		},
	}

	return cmd
}

func runResolve(opts *RootOptions, schemaPath, entityName, name string, raw []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	call, err := prepareFilter(ctx, schemaPath, entityName, name, raw)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	entity := call.entity

	result := ResolveResult{
		Entity:  entity.Name(),
		Filter:  name,
		Local:   entity.LocallySatisfies(name),
		Arity:   call.signature.Arity.String(),
		ArgType: string(call.signature.ArgType),
	}
	if primary, ok := entity.Resolver().PrimaryNameFor(name); ok {
		result.Primary = primary
	}
	if !result.Local {
		if d, ok := entity.Resolver().Decompose(name); ok {
			result.Association = d.Association
			result.Target = d.TargetCondition()
			result.Alias = d.Alias
		}
	}
	formatter.VerboseLog("Resolved %s.%s as %s", entity.Name(), name, result.Primary)

	if call.signature.Arity.IsZero() || len(call.args) > 0 {
		frag, err := entity.Filter(ctx, name, call.args)
		if err != nil {
			return formatter.Fail(err, result)
		}
		result.Invoked = true
		result.Args = formatArgs(call.args)
		result.Joins = frag.Joins.String()
		result.Fragment = frag.ToCanonicalMap()
		for _, col := range frag.Conditions.Columns() {
			result.Conditions = append(result.Conditions, queryir.FormatPredicate(col, frag.Conditions[col]))
		}
	}

	return formatter.Success(result)
}

func formatArgs(args []ir.IRValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = ir.Format(a)
	}
	return out
}
