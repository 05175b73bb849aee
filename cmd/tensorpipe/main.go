// Command tensorpipe launches and inspects tensor pipelines.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	pipe "pipelined.dev/tensorpipe"
)

const (
	successExitCode = 0
	errorExitCode   = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	pipe.Initialize()
	defer pipe.Shutdown()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Command failed: %v\n", err)
		return errorExitCode
	}
	return successExitCode
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tensorpipe",
		Short:         "Streaming tensor pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(newLaunchCmd(), newInspectCmd(), newParseCmd())
	return root
}

// description joins arguments the way gst-launch does.
func description(args []string) string {
	return strings.Join(args, " ")
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}
