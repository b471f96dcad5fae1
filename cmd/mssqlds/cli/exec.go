package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	datasource "github.com/Falven/mssql-data-source"
)

func newExecCmd() *cobra.Command {
	var (
		mutation  bool
		timeout   time.Duration
		selection []string
		siblings  []string
	)

	cmd := &cobra.Command{
		Use:   "exec <procedure> [json-params]",
		Short: "Execute a stored procedure and print the result envelope",
		Long: `Execute a stored procedure on the query endpoint (or the mutation endpoint
with --mutation). Parameters are given as a JSON object and matched
case-insensitively against the procedure's introspected parameter schema.

Examples:
  mssqlds exec dbo.GetPeople '{"page": 1, "pageSize": 10}'
  mssqlds exec --mutation dbo.ArchivePeople '{"before": "2024-01-01"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			procedure := args[0]

			input := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
					return fmt.Errorf("invalid params JSON: %w", err)
				}
			}

			ds, err := newDataSource()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			var opts []datasource.ExecOption
			if len(selection) > 0 {
				opts = append(opts, datasource.WithSelectionFields(selection...))
			}
			if len(siblings) > 0 {
				opts = append(opts, datasource.WithSiblingFields(siblings...))
			}

			var envelope *datasource.ResultEnvelope
			if mutation {
				envelope, err = ds.ExecuteStoredProcedureMutation(ctx, procedure, input, opts...)
			} else {
				envelope, err = ds.ExecuteStoredProcedureQuery(ctx, procedure, input, opts...)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(envelope)
		},
	}

	cmd.Flags().BoolVar(&mutation, "mutation", false, "run on the mutation endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall call timeout")
	cmd.Flags().StringSliceVar(&selection, "select", nil, "canonical casing for result-set fields")
	cmd.Flags().StringSliceVar(&siblings, "siblings", nil, "canonical casing for output-parameter fields")

	return cmd
}
