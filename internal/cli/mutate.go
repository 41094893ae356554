package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/query"
)

// MutateOptions holds flags for the mutate command.
type MutateOptions struct {
	*RootOptions
	Entity  string
	ID      string
	Data    string // JSON object
	Changes string // JSON object
	Items   string // JSON array of mutations
	Confirm bool
}

// NewMutateCommand creates the mutate command.
func NewMutateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mutate <create|update|complete|delete|batch>",
		Short: "Run a create, update, complete, delete or batch mutation",
		Long: `Compile a mutation, run it and print the response envelope. Affected
cache collections are invalidated whenever the script may have run.

Examples:
  focusql mutate create --entity task --data '{"name":"Call the bank","flagged":true}'
  focusql mutate update --entity task --id abc123 --changes '{"addTags":["errands"]}'
  focusql mutate delete --entity task --id abc123 --confirm
  focusql mutate batch --items '[{"operation":"complete","entityType":"task","id":"a"}]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args[0])
			if err != nil {
				return err
			}
			return runEnvelope(rootOpts, cmd, req)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity type (task|project|tag|folder)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "target id (update, complete, delete)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "create fields as a JSON object")
	cmd.Flags().StringVar(&opts.Changes, "changes", "", "update fields as a JSON object")
	cmd.Flags().StringVar(&opts.Items, "items", "", "batch members as a JSON array")
	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "acknowledge a destructive delete")

	return cmd
}

func (o *MutateOptions) request(operation string) (*query.MutationRequest, error) {
	op, err := query.ParseOperation(operation)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid operation", err)
	}
	req := &query.MutationRequest{
		Operation:  op,
		EntityType: o.Entity,
		ID:         o.ID,
		Confirmed:  o.Confirm,
	}
	if o.Data != "" {
		if err := decodeFlag("data", o.Data, &req.Data); err != nil {
			return nil, err
		}
	}
	if o.Changes != "" {
		if err := decodeFlag("changes", o.Changes, &req.Changes); err != nil {
			return nil, err
		}
	}
	if o.Items != "" {
		if err := decodeFlag("items", o.Items, &req.Items); err != nil {
			return nil, err
		}
	}
	return req, nil
}
