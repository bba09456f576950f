package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/sigevent/internal/harness"
	"github.com/roach88/sigevent/internal/metrics"
	"github.com/roach88/sigevent/internal/store"
	"github.com/roach88/sigevent/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Session  string
	Metrics  bool

	// SessionGenerator allows overriding the session id generator used when
	// persisting a scenario without a session id (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionGenerator trace.SessionIDGenerator
}

// RunResult is the payload of the run command.
type RunResult struct {
	Scenario string          `json:"scenario"`
	Result   *harness.Result `json:"result"`
	Metrics  string          `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario",
		Long: `Run one scenario against a fresh simulated host and print its trace.

With --db the trace is stored in a SQLite database (created if it doesn't
exist) under the scenario's session id, the --session value, or a new
UUIDv7. With --metrics the Prometheus text exposition of the monitor
counters is printed after the trace.

Exit codes:
  0 - Scenario passed
  1 - Scenario expectations or assertions failed
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  sigevent run ./scenarios/edge.yaml
  sigevent run ./scenarios/edge.yaml --db ./traces.db --session s-1
  sigevent run ./scenarios/edge.cue --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for the trace")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (overrides the scenario's)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the trace")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if opts.Session != "" {
		scenario.SessionID = opts.Session
	}

	var runOpts []harness.Option
	if opts.Verbose {
		runOpts = append(runOpts, harness.WithLogger(slog.Default()))
	}

	if opts.Database != "" {
		f.VerboseLog("opening database %s", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithStore(st))

		gen := opts.SessionGenerator
		if gen == nil {
			gen = trace.UUIDv7Generator{}
		}
		runOpts = append(runOpts, harness.WithSessionIDGenerator(gen))
	}

	var rec *metrics.Recorder
	if opts.Metrics {
		rec = metrics.NewRecorder()
		runOpts = append(runOpts, harness.WithMetrics(rec))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	out := RunResult{Scenario: scenario.Name, Result: result}
	if rec != nil {
		var buf bytes.Buffer
		if err := rec.WriteText(&buf); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		out.Metrics = buf.String()
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: out, SessionID: result.SessionID}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_RUN_FAILED",
				Message: fmt.Sprintf("scenario %s failed", scenario.Name),
				Details: result.Errors,
			}
		}
		if err := f.JSON(resp); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// outputRunText prints the scenario outcome, its trace and metrics.
func outputRunText(cmd *cobra.Command, out RunResult) {
	w := cmd.OutOrStdout()
	result := out.Result

	mark := "✓"
	if !result.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (session %s)\n", mark, out.Scenario, result.SessionID)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Diagnostics ===")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
		fmt.Fprintf(w, "  finish requested: %d\n", result.FinishCode)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Trace ===")
	writeTimeline(w, result.Trace)

	if out.Metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Metrics ===")
		fmt.Fprint(w, out.Metrics)
	}
}
