package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sigevent/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, describeEvent(ev))
		}
	}

	return buf.String()
}

func describeEvent(ev trace.Event) string {
	switch ev.Kind {
	case trace.KindRegister:
		if ev.Error != "" {
			return fmt.Sprintf("register %s #%d %s (%s)", ev.Site, ev.Handle, ev.Signal, ev.Error)
		}
		return fmt.Sprintf("register %s #%d %s", ev.Site, ev.Handle, ev.Signal)
	case trace.KindChange:
		return fmt.Sprintf("change #%d @%s", ev.Handle, ev.Time)
	case trace.KindQuery:
		return fmt.Sprintf("query #%d @%s = %t", ev.Handle, ev.Time, ev.Result)
	case trace.KindTeardown:
		return fmt.Sprintf("teardown released=%d", ev.Released)
	}
	return string(ev.Kind)
}

func validKind(k string) bool {
	switch trace.Kind(k) {
	case trace.KindRegister, trace.KindChange, trace.KindQuery, trace.KindTeardown:
		return true
	}
	return false
}

// assertTraceCount checks that events of the kind appear exactly the
// specified number of times.
func assertTraceCount(events []trace.Event, assertion Assertion) error {
	count := 0
	for _, ev := range events {
		if string(ev.Kind) == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d %s events", count, assertion.Kind),
			Trace:    events,
		}
	}
	return nil
}

// assertTraceOrder checks that the kinds appear in the trace in the given
// order. Intervening events are allowed; a kind listed twice must occur twice.
func assertTraceOrder(events []trace.Event, assertion Assertion) error {
	next := 0
	for _, ev := range events {
		if next < len(assertion.Kinds) && string(ev.Kind) == assertion.Kinds[next] {
			next++
		}
	}

	if next < len(assertion.Kinds) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
			Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(assertion.Kinds), assertion.Kinds[next]),
			Trace:    events,
		}
	}
	return nil
}

// assertFinishCode checks the status the attribute asked the host to finish
// with.
func assertFinishCode(result *Result, assertion Assertion) error {
	if result.FinishCode != assertion.Code {
		return &AssertionError{
			Type:     AssertFinishCode,
			Expected: fmt.Sprintf("finish code %d", assertion.Code),
			Actual:   fmt.Sprintf("finish code %d", result.FinishCode),
		}
	}
	return nil
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertFinishCode:
			err = assertFinishCode(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
