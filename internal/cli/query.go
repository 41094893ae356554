package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/focusql/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Entity    string
	Mode      string
	DaysAhead int
	Search    string
	Filter    string // canonical filter JSON
	Where     string // shorthand JSON object
	Fields    []string
	Sort      string // "field:asc,other:desc"
	Limit     int
	Offset    int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a structured query",
		Long: `Compile a query into a read script, run it and print the response
envelope.

Examples:
  focusql query --entity task --mode today
  focusql query --entity task --mode upcoming --days-ahead 14 --sort dueDate:asc
  focusql query --entity task --where '{"flagged":true}' --fields name,dueDate
  focusql query --entity project --filter '{"type":"comparison","field":"status","operator":"EQ","value":"active"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}
			return runEnvelope(rootOpts, cmd, req)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity type (task|project|tag|folder)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "query mode (all|inbox|search|flagged|available|overdue|today|upcoming|blocked|smart_suggest)")
	cmd.Flags().IntVar(&opts.DaysAhead, "days-ahead", 0, "window for today/upcoming modes")
	cmd.Flags().StringVar(&opts.Search, "search", "", "search text (search mode)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "canonical filter as JSON")
	cmd.Flags().StringVar(&opts.Where, "where", "", "shorthand filter as a JSON object")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields to return")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort keys, e.g. dueDate:asc,name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from config)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "page offset")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func (o *QueryOptions) request(cmd *cobra.Command) (*query.QueryRequest, error) {
	req := &query.QueryRequest{
		EntityType: o.Entity,
		Mode:       query.Mode(o.Mode),
		Fields:     o.Fields,
		Limit:      o.Limit,
		Offset:     o.Offset,
	}
	if cmd.Flags().Changed("days-ahead") {
		days := o.DaysAhead
		req.ModeOptions.DaysAhead = &days
	}
	req.ModeOptions.SearchText = o.Search

	if o.Filter != "" {
		if err := decodeFlag("filter", o.Filter, &req.Filter); err != nil {
			return nil, err
		}
	}
	if o.Where != "" {
		if err := decodeFlag("where", o.Where, &req.Where); err != nil {
			return nil, err
		}
	}
	sort, err := query.ParseSort(o.Sort)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --sort", err)
	}
	req.Sort = sort
	return req, nil
}

// decodeFlag unmarshals a JSON flag value into dst.
func decodeFlag(name, value string, dst any) error {
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s JSON", name), err)
	}
	return nil
}
