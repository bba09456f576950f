package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sigevent/internal/store"
	"github.com/roach88/sigevent/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Site     string // optional - filter to one call site
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  store.Session `json:"session"`
	Timeline []trace.Event `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Registers   int `json:"registers"`
	Changes     int `json:"changes"`
	Queries     int `json:"queries"`
	Hits        int `json:"hits"`
	Released    int `json:"released"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a stored session trace",
		Long: `Show the trace of a session stored by "sigevent run --db".

The output includes:
- Timeline: registrations, value changes, queries and teardowns in order
- Stats: Summary statistics for the session

With --site the timeline is limited to the monitors registered at that call
site ("file:line") and to teardowns.

Examples:
  sigevent trace --db ./traces.db --session s-1
  sigevent trace --db ./traces.db --session s-1 --site top.vhd:12
  sigevent trace --db ./traces.db --session s-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to show (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Site, "site", "", "filter to one call site (file:line)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// Opening would create a missing database
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	events, err := st.ReadTrace(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	timeline := filterBySite(events, opts.Site)
	result := TraceResult{
		Session:  sess,
		Timeline: timeline,
		Stats:    traceStats(timeline),
	}

	if opts.Format == "json" {
		f := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return f.JSON(CLIResponse{Status: "ok", Data: result, SessionID: sess.ID})
	}

	outputTraceText(cmd.OutOrStdout(), result)
	return nil
}

// filterBySite keeps the events of monitors registered at site, plus
// teardowns. An empty site keeps everything.
func filterBySite(events []trace.Event, site string) []trace.Event {
	if site == "" {
		return events
	}

	handles := make(map[int]bool)
	for _, ev := range events {
		if ev.Kind == trace.KindRegister && ev.Site == site && ev.Handle >= 0 {
			handles[ev.Handle] = true
		}
	}

	filtered := []trace.Event{}
	for _, ev := range events {
		switch ev.Kind {
		case trace.KindRegister:
			if ev.Site != site {
				continue
			}
		case trace.KindChange, trace.KindQuery:
			if !handles[ev.Handle] {
				continue
			}
		}
		filtered = append(filtered, ev)
	}
	return filtered
}

func traceStats(events []trace.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Kind {
		case trace.KindRegister:
			stats.Registers++
		case trace.KindChange:
			stats.Changes++
		case trace.KindQuery:
			stats.Queries++
			if ev.Result {
				stats.Hits++
			}
		case trace.KindTeardown:
			stats.Released += ev.Released
		}
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.ID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Session.Scenario)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	writeTimeline(w, result.Timeline)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Registers:    %d\n", result.Stats.Registers)
	fmt.Fprintf(w, "  Changes:      %d\n", result.Stats.Changes)
	fmt.Fprintf(w, "  Queries:      %d (%d true)\n", result.Stats.Queries, result.Stats.Hits)
	fmt.Fprintf(w, "  Released:     %d\n", result.Stats.Released)
}

// writeTimeline prints one line per event.
func writeTimeline(w io.Writer, events []trace.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return
	}
	for _, ev := range events {
		fmt.Fprintf(w, "  [%d] %s\n", ev.Seq, formatEvent(ev))
	}
}

// formatEvent renders an event for text output.
func formatEvent(ev trace.Event) string {
	switch ev.Kind {
	case trace.KindRegister:
		if ev.Handle < 0 {
			return fmt.Sprintf("REG    %s (no monitor): %s", ev.Site, ev.Error)
		}
		s := fmt.Sprintf("REG    %s #%d <- %s", ev.Site, ev.Handle, ev.Signal)
		if ev.Error != "" {
			s += ": " + ev.Error
		}
		return s
	case trace.KindChange:
		return fmt.Sprintf("CHANGE #%d @%s", ev.Handle, ev.Time)
	case trace.KindQuery:
		result := 0
		if ev.Result {
			result = 1
		}
		return fmt.Sprintf("QUERY  #%d @%s = %d", ev.Handle, ev.Time, result)
	case trace.KindTeardown:
		return fmt.Sprintf("END    released %d", ev.Released)
	}
	return string(ev.Kind)
}
