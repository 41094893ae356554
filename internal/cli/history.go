package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit   int
	Summary bool
}

// HistoryResult is the JSON shape of the history command.
type HistoryResult struct {
	Executions []store.Execution  `json:"executions,omitempty"`
	Summary    []store.SummaryRow `json:"summary,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent executions from the journal",
		Long: `Show recent executions from the execution journal, newest first.
Requires journal.path in the config.

Examples:
  focusql history --limit 5
  focusql history --summary --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of executions to show")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "count executions per strategy and outcome instead")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return NewExitError(ExitCommandError, "journal disabled: set journal.path in the config")
	}
	st, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	var text strings.Builder
	var result HistoryResult
	if opts.Summary {
		rows, err := st.Summary(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read journal", err)
		}
		result.Summary = rows
		for _, r := range rows {
			fmt.Fprintf(&text, "%-18s %-8s %d\n", orDash(r.Strategy), r.Outcome, r.Count)
		}
	} else {
		execs, err := st.Recent(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read journal", err)
		}
		result.Executions = execs
		for _, e := range execs {
			fmt.Fprintf(&text, "%s %-8s %-8s %-18s %-8s %5dms %s\n",
				e.RecordedAt.Format("2006-01-02T15:04:05Z07:00"), e.Operation, e.Entity,
				orDash(e.Strategy), e.Outcome, e.DurationMs, e.ID)
		}
	}
	out := strings.TrimRight(text.String(), "\n")
	if out == "" {
		out = "No executions recorded."
	}
	return formatter.Success(result, out)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
