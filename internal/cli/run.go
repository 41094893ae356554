package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/query"
)

// runEnvelope executes one request and prints its envelope. A failed
// envelope exits with ExitFailure after it has been printed.
func runEnvelope(opts *RootOptions, cmd *cobra.Command, req query.Request) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openRuntime(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	env := rt.Compiler.CompileAndRun(cmd.Context(), req)
	if err := formatter.Envelope(env); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !env.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", env.Error.Kind, env.Error.Message))
	}
	return nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
