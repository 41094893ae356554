package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/filter"
	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/registry"
)

// FilterValidation is the result of validate-filter.
type FilterValidation struct {
	Valid     bool                     `json:"valid"`
	Filter    string                   `json:"filter,omitempty"`
	Canonical any                      `json:"canonical,omitempty"`
	Errors    []filter.ValidationError `json:"errors,omitempty"`
}

// ValidateFilterOptions holds flags for the validate-filter command.
type ValidateFilterOptions struct {
	*RootOptions
	Entity string
	Where  string
}

// NewValidateFilterCommand creates the validate-filter command.
func NewValidateFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateFilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate-filter [canonical-json]",
		Short: "Normalize and validate a filter without running it",
		Long: `Merge a canonical filter document with an optional shorthand map,
validate the result against the entity's fields and print the
normalized tree or every validation error.

Examples:
  focusql validate-filter --entity task '{"type":"comparison","field":"dueDate","operator":"LT","value":"2024-04-01T00:00:00Z"}'
  focusql validate-filter --entity task --where '{"flagged":true,"tags":["home"]}'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateFilter(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity type (task|project|tag|folder)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "shorthand filter as a JSON object")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runValidateFilter(opts *ValidateFilterOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	entity, err := registry.Default().Entity(opts.Entity)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --entity", err)
	}
	var canonical any
	if len(args) == 1 {
		if err := decodeFlag("filter", args[0], &canonical); err != nil {
			return err
		}
	}
	var where map[string]any
	if opts.Where != "" {
		if err := decodeFlag("where", opts.Where, &where); err != nil {
			return err
		}
	}

	expr, err := filter.Build(entity, canonical, where)
	if err != nil {
		errs, ok := filter.AsValidationErrors(err)
		if !ok {
			return WrapExitError(ExitCommandError, "filter check failed", err)
		}
		result := FilterValidation{Valid: false, Errors: errs}
		if formatter.isJSON() {
			if werr := writeJSON(formatter.Writer, CLIResponse{Status: "error", Data: result}); werr != nil {
				return werr
			}
		} else {
			lines := make([]string, len(errs))
			for i, e := range errs {
				lines[i] = "✗ " + e.Error()
			}
			fmt.Fprintln(formatter.Writer, strings.Join(lines, "\n"))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}

	result := FilterValidation{Valid: true, Filter: filter.String(expr)}
	if expr != nil {
		result.Canonical = ir.ToAny(filter.ToIR(expr))
	}
	text := "✓ empty filter matches every " + entity.Name
	if expr != nil {
		text = "✓ " + result.Filter
	}
	return formatter.Success(result, text)
}
