// Package cmd implements the quakeetl command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code for a failure that has already
// been reported to the user.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Exit codes returned by Execute.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitEmptyCatalog = 2
	ExitInvalidQuery = 3
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quakeetl",
		Short: "Download and normalize USGS earthquake catalogs",
		Long: `quakeetl downloads earthquake catalogs from the USGS feed and query
services, merges them into one checked CSV and optionally publishes the
records to Kafka. Configuration is read from the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("color", "auto", "color output: auto, always or never")

	cmd.AddCommand(newFetchCommand())
	cmd.AddCommand(newServeCommand())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitFailure
	}
	return ExitOK
}
