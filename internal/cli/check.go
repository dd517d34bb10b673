package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/condscope/internal/condition"
	"github.com/roach88/condscope/internal/schema"
)

// CheckResult holds schema validation results.
type CheckResult struct {
	Valid    bool                     `json:"valid"`
	Entities []string                 `json:"entities"`
	Errors   []schema.ValidationError `json:"errors,omitempty"`
	Warnings []schema.ValidationError `json:"warnings,omitempty"`
}

// String renders the result for text output.
func (r CheckResult) String() string {
	var b strings.Builder
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning %s\n", w.Error())
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error %s\n", e.Error())
	}
	if r.Valid {
		fmt.Fprintf(&b, "✓ Schema valid (%d entities: %s)", len(r.Entities), strings.Join(r.Entities, ", "))
	} else {
		fmt.Fprintf(&b, "✗ %d error(s)", len(r.Errors))
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <schema>",
		Short: "Validate a schema",
		Long: `Validate a CUE or YAML schema without resolving any filters.

Reports every validation error and warning. Warnings (such as a scope
whose name shadows an association prefix) do not fail the check.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	spec, err := loadSpec(schemaPath)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	formatter.VerboseLog("Loaded %d entities from %s", len(spec.Entities), schemaPath)

	result := CheckResult{Entities: make([]string, 0, len(spec.Entities))}
	for _, e := range spec.Entities {
		result.Entities = append(result.Entities, e.Name)
	}
	for _, ve := range schema.Validate(spec, condition.Default()) {
		if ve.IsWarning() {
			result.Warnings = append(result.Warnings, ve)
		} else {
			result.Errors = append(result.Errors, ve)
		}
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		if err := formatter.Error(ErrCodeInvalidSchema, fmt.Sprintf("%d validation error(s)", len(result.Errors)), result); err != nil {
			return err
		}
		if opts.Format != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d validation error(s)", ErrCodeInvalidSchema, len(result.Errors)))
	}

	return formatter.Success(result)
}
