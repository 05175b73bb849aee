package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pipelined.dev/tensorpipe/element"
	"pipelined.dev/tensorpipe/filter"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List supported elements and frameworks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := newTable(cmd.OutOrStdout(), "ELEMENT", "VARIANT", "PROPERTIES")
			for _, k := range element.Kinds() {
				table.Append([]string{k.Name, k.Variant.String(), strings.Join(k.Properties, ",")})
			}
			table.Render()
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "Frameworks: %s\n", strings.Join(filter.Frameworks(), ", "))
			return nil
		},
	}
}
