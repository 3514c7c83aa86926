package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trend-pipeline/internal/api/handler"
	"trend-pipeline/internal/export"
	"trend-pipeline/internal/pipeline"
)

func newSchemasCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the registered dataset kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := pipeline.DefaultRegistry()
			var infos []handler.SchemaInfo
			for _, kind := range reg.Kinds() {
				s, err := reg.Lookup(kind)
				if err != nil {
					return err
				}
				infos = append(infos, handler.DescribeSchema(s))
			}
			if output == "json" {
				return export.WriteJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, info := range infos {
				fmt.Fprintf(tw, "%s (%s)\n", info.Kind, info.Layout)
				if info.PeriodPattern != "" {
					fmt.Fprintf(tw, "  period columns\t%s\t%s\n", info.PeriodPattern, info.PeriodLayout)
				}
				for _, f := range info.Fields {
					req := ""
					if f.Required {
						req = "required"
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", f.Name, f.Column, f.Type, f.Role, strings.TrimSpace(req))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}
