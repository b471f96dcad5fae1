package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Falven/mssql-data-source/internal/pool"
	"github.com/Falven/mssql-data-source/internal/proc"
)

// parameterView is the serializable shape of one introspected parameter.
type parameterView struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Mode      string `json:"mode" yaml:"mode"`
	Default   any    `json:"default,omitempty" yaml:"default,omitempty"`
	Required  bool   `json:"required" yaml:"required"`
	Length    *int64 `json:"length,omitempty" yaml:"length,omitempty"`
	Precision *int64 `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     *int64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

func newSchemaCmd() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schema <procedure>",
		Short: "Introspect and print a stored procedure's parameter schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			procedure := args[0]

			ep, err := endpointConfig("query")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			mgr := pool.NewManager()
			p, err := mgr.QueryPool(ep.Connection)
			if err != nil {
				return err
			}

			meta := proc.NewMetadata(ep.Logger)
			params, err := pool.WithRequest(ctx, p, func(conn *sqlx.Conn) ([]*proc.Parameter, error) {
				raw, err := meta.ParameterSchema(ctx, conn, procedure)
				if err != nil {
					return nil, err
				}
				return meta.ParseParameters(procedure, raw)
			})
			if err != nil {
				return err
			}

			views := make([]parameterView, 0, len(params))
			for _, p := range params {
				views = append(views, parameterView{
					Name:      p.Name,
					Type:      p.Type,
					Mode:      p.Mode.String(),
					Default:   p.Default,
					Required:  p.Mode == proc.ModeIn && !p.HasDefault,
					Length:    p.Length,
					Precision: p.Precision,
					Scale:     p.Scale,
				})
			}

			switch format {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			case "yaml":
				return yaml.NewEncoder(os.Stdout).Encode(views)
			case "table":
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tTYPE\tMODE\tREQUIRED\tDEFAULT")
				for _, v := range views {
					def := ""
					if v.Default != nil {
						def = fmt.Sprint(v.Default)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", v.Name, v.Type, v.Mode, v.Required, def)
				}
				return w.Flush()
			default:
				return fmt.Errorf("unknown format %q (want table, json, or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, or yaml")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "introspection timeout")

	return cmd
}
