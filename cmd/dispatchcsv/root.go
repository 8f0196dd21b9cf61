package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Version and BuildDate are set at build time:
//
//	go build -ldflags "-X main.Version=1.2.0 -X main.BuildDate=2026-01-01" ./cmd/dispatchcsv
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// exitError ends the command with a specific exit code and no message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "dispatchcsv",
		Short: "Parse dispatch board reports",
		Long: `dispatchcsv reads a dispatch report (.csv, .tsv, .txt or .xlsx) and prints
what an import would do: the accepted deliveries, rejected rows, warnings
and duplicate order ids.

Example Usage:
  dispatchcsv parse report.csv
  dispatchcsv parse report.xlsx --format yaml
  dispatchcsv parse report.csv --existing board-ids.txt --fail-on-error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(newParseCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "dispatchcsv")
			fmt.Fprintf(w, "Version:    %s\n", Version)
			fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
		},
	}
}
