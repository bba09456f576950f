package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sigevent CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sigevent",
		Short: "sigevent - signal 'event attribute monitor",
		Long: `Run and inspect the 'event attribute monitor of a simulation host.

A monitor answers whether its signal changed value at exactly the current
simulation time. Scenarios script a host session step by step; traces of
what the monitors did can be stored in SQLite and compared to golden files.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			configureLogging(opts, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the CLI with args and returns the process exit code.
// Command errors are reported as a JSON error response on out with
// --format json; all other errors are reported as text on errOut.
func Execute(args []string, out, errOut io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	code := GetExitCode(err)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra.
		code = ExitCommandError
	}

	f := NewOutputFormatter(opts, errOut, errOut)
	switch {
	case opts.Format == "json" && code == ExitCommandError:
		f.Writer = out
	case opts.Format == "json":
		// The command already wrote its JSON response.
		return code
	}
	_ = f.Error(errorCode(code), err.Error(), nil)
	return code
}

func errorCode(exitCode int) string {
	if exitCode == ExitCommandError {
		return "E_COMMAND"
	}
	return "E_FAILURE"
}
