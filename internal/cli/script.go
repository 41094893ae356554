package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/query"
)

// ScriptOptions holds flags for the script command.
type ScriptOptions struct {
	*RootOptions
	Request string // query or mutation request as JSON
}

// RenderedScript is one generated script in JSON output.
type RenderedScript struct {
	Template  string `json:"template"`
	Strategy  string `json:"strategy"`
	RequestID string `json:"requestId"`
	Digest    string `json:"digest"`
	Source    string `json:"source"`
}

// NewScriptCommand creates the script command.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScriptOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the scripts a request compiles to without running them",
		Long: `Compile a query or mutation and print the generated automation
scripts. A request object with an "operation" key is a mutation,
anything else is a query.

Examples:
  focusql script --request '{"entityType":"task","mode":"overdue"}'
  focusql script --request '{"operation":"update","entityType":"task","id":"a","changes":{"tags":["home"]}}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Request, "request", "", "request as JSON")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

// decodeRequest tells a mutation from a query by its operation key.
func decodeRequest(raw string) (query.Request, error) {
	var probe map[string]json.RawMessage
	if err := decodeFlag("request", raw, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["operation"]; ok {
		var m query.MutationRequest
		if err := decodeFlag("request", raw, &m); err != nil {
			return nil, err
		}
		return &m, nil
	}
	var q query.QueryRequest
	if err := decodeFlag("request", raw, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func runScript(opts *ScriptOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	req, err := decodeRequest(opts.Request)
	if err != nil {
		return err
	}
	rt, err := openRuntime(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	plan, err := rt.Compiler.Compile(req)
	if err != nil {
		e := engine.AsError(err)
		if werr := formatter.Error(string(e.Kind), e.Message, e.Details); werr != nil {
			return werr
		}
		return WrapExitError(ExitFailure, "compile failed", err)
	}

	scripts := make([]RenderedScript, len(plan.Scripts))
	var text strings.Builder
	fmt.Fprintf(&text, "// %s %s strategy=%s", plan.Operation, plan.Entity, plan.Strategy)
	if plan.Filter != "" {
		fmt.Fprintf(&text, " filter=%s", plan.Filter)
	}
	text.WriteString("\n")
	for i, art := range plan.Scripts {
		scripts[i] = RenderedScript{
			Template:  string(art.Template),
			Strategy:  art.Strategy.String(),
			RequestID: art.RequestID,
			Digest:    art.Digest(),
			Source:    art.Source,
		}
		fmt.Fprintf(&text, "// --- %s (%s) %s\n%s\n", art.Template, art.Strategy, art.RequestID, art.Source)
	}
	return formatter.Success(map[string]any{"plan": plan, "scripts": scripts}, strings.TrimRight(text.String(), "\n"))
}
