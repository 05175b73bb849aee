package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pipelined.dev/tensorpipe/element"
	"pipelined.dev/tensorpipe/parse"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <description>",
		Short: "Print elements and links of the description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parse.Parse(description(args), element.Known)
			if err != nil {
				return err
			}
			elements := newTable(cmd.OutOrStdout(), "NAME", "KIND", "PROPERTIES")
			for _, e := range d.Elements {
				elements.Append([]string{e.Name, e.Kind, properties(e.Properties)})
			}
			elements.Render()
			fmt.Fprintln(cmd.OutOrStdout())

			links := newTable(cmd.OutOrStdout(), "FROM", "TO")
			for _, l := range d.Links {
				links.Append([]string{endpoint(l.From, l.FromPad), endpoint(l.To, l.ToPad)})
			}
			links.Render()
			return nil
		},
	}
}

func properties(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = fmt.Sprintf("%s=%s", k, props[k])
	}
	return strings.Join(s, " ")
}

func endpoint(name, pad string) string {
	if pad == "" {
		return name
	}
	return name + "." + pad
}
