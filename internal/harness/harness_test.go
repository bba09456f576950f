package harness

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sigevent/internal/metrics"
	"github.com/roach88/sigevent/internal/simtime"
	"github.com/roach88/sigevent/internal/store"
	"github.com/roach88/sigevent/internal/trace"
)

func ptr[T any](v T) *T { return &v }

func edgeScenario() *Scenario {
	return &Scenario{
		Name:        "edge",
		Description: "edge-triggered query",
		Signals:     map[string]string{"clk": "0"},
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", File: "top.vhd", Line: 12, Args: []string{"clk"}}},
			{Change: &ChangeStep{Signal: "clk", Value: "1", Time: 100}},
			{Query: &QueryStep{Site: "ev1", Time: 100, Expect: ptr(true)}},
			{Query: &QueryStep{Site: "ev1", Time: 101, Expect: ptr(false)}},
			{Change: &ChangeStep{Signal: "clk", Value: "0", Time: 200}},
			{Query: &QueryStep{Site: "ev1", Time: 200, Expect: ptr(true)}},
			{Teardown: &TeardownStep{ExpectReleased: ptr(1)}},
		},
	}
}

func TestRun_EdgeScenario(t *testing.T) {
	result, err := Run(context.Background(), edgeScenario())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, 0, result.FinishCode)
	assert.Equal(t, DefaultSessionID, result.SessionID)

	require.Len(t, result.Trace, 7)
	kinds := make([]trace.Kind, len(result.Trace))
	for i, ev := range result.Trace {
		kinds[i] = ev.Kind
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, []trace.Kind{
		trace.KindRegister, trace.KindChange, trace.KindQuery, trace.KindQuery,
		trace.KindChange, trace.KindQuery, trace.KindTeardown,
	}, kinds)
	assert.Equal(t, "top.vhd:12", result.Trace[0].Site)
	assert.Equal(t, simtime.New(0, 100), result.Trace[1].Time)
	assert.True(t, result.Trace[2].Result)
	assert.False(t, result.Trace[3].Result)
	assert.Equal(t, 1, result.Trace[6].Released)
}

func TestRun_FailedExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "expects true after the change tick",
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"clk"}}},
			{Change: &ChangeStep{Signal: "clk", Value: "1", Time: 5}},
			{Query: &QueryStep{Site: "ev1", Time: 6, Expect: ptr(true)}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 2: query ev1 at 6: expected 1, got 0")
}

func TestRun_DefaultCallSiteLocation(t *testing.T) {
	scenario := &Scenario{
		Name:        "defaults",
		Description: "file and line default to scenario name and step number",
		Steps: []Step{
			{Change: &ChangeStep{Signal: "clk", Value: "1", Time: 1}},
			{Register: &RegisterStep{Site: "ev1", Args: []string{}, ExpectError: "defaults:2: (compiler error)"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "defaults:2", result.Trace[0].Site)
}

func TestRun_SetupErrors(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup",
		Description: "missing and extra arguments",
		Steps: []Step{
			{Register: &RegisterStep{Site: "none", File: "top.vhd", Line: 3, ExpectError: "requires a single argument"}},
			{Register: &RegisterStep{Site: "two", File: "top.vhd", Line: 4, Args: []string{"a", "b"}, ExpectError: "only takes a single argument"}},
			{Change: &ChangeStep{Signal: "a", Value: "1", Time: 10}},
			{Query: &QueryStep{Site: "two", Time: 10, Expect: ptr(true)}},
			{Query: &QueryStep{Site: "none", Time: 10, ExpectError: "no monitor registered"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.FinishCode)
	assert.Equal(t, []string{
		"top.vhd:3: (compiler error) $ivlh_attribute_event requires a single argument.",
		"top.vhd:4: (compiler error) $ivlh_attribute_event only takes a single argument.",
	}, result.Diagnostics)

	// Auto teardown releases the monitor created despite the extra argument.
	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, trace.KindTeardown, last.Kind)
	assert.Equal(t, 1, last.Released)
}

func TestRun_UnexpectedSetupError(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "register without arguments and no expected error",
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", File: "a.vhd", Line: 1}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_MissingExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "expects an error that never comes",
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"clk"}, ExpectError: "requires"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got none")
}

func TestRun_UnchangedValueDoesNotNotify(t *testing.T) {
	scenario := &Scenario{
		Name:        "same_value",
		Description: "driving the current value is not an event",
		Signals:     map[string]string{"d": "1"},
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"d"}}},
			{Change: &ChangeStep{Signal: "d", Value: "1", Time: 3}},
			{Query: &QueryStep{Site: "ev1", Time: 3, Expect: ptr(false)}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	for _, ev := range result.Trace {
		assert.NotEqual(t, trace.KindChange, ev.Kind)
	}
}

func TestRun_TimeBackwards(t *testing.T) {
	scenario := &Scenario{
		Name:        "backwards",
		Description: "time cannot run backwards",
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"clk"}}},
			{Change: &ChangeStep{Signal: "clk", Value: "1", Time: 10}},
			{Query: &QueryStep{Site: "ev1", Time: 9, Expect: ptr(false)}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "time 9 is before current time 10")
}

func TestRun_RepeatedTeardown(t *testing.T) {
	scenario := &Scenario{
		Name:        "twice",
		Description: "second teardown releases nothing",
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"clk"}}},
			{Register: &RegisterStep{Site: "ev2", Args: []string{"clk"}}},
			{Teardown: &TeardownStep{ExpectReleased: ptr(2)}},
			{Teardown: &TeardownStep{ExpectReleased: ptr(0)}},
			{Query: &QueryStep{Site: "ev1", ExpectError: "no monitor registered"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, 2, result.Trace[2].Released)
	assert.Equal(t, 0, result.Trace[3].Released)
}

func TestRun_StepsAfterTeardown(t *testing.T) {
	// Built in code, so validation is bypassed; Run must still not let a
	// released monitor see later changes.
	scenario := &Scenario{
		Name:        "after_end",
		Description: "register and change after teardown",
		Signals:     map[string]string{"a": "0", "b": "0"},
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"a"}}},
			{Teardown: &TeardownStep{ExpectReleased: ptr(1)}},
			{Register: &RegisterStep{Site: "ev2", Args: []string{"b"}}},
			{Change: &ChangeStep{Signal: "a", Value: "1", Time: 5}},
			{Query: &QueryStep{Site: "ev2", Time: 5, ExpectError: "no monitor registered"}},
		},
	}

	var result *Result
	require.NotPanics(t, func() {
		var err error
		result, err = Run(context.Background(), scenario)
		require.NoError(t, err)
	})

	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"step 2: register ev2: simulation has ended",
		"step 3: change a: simulation has ended",
	}, result.Errors)
	for _, ev := range result.Trace {
		assert.NotEqual(t, "change", string(ev.Kind), "no notification after teardown")
	}
}

func TestRun_HighTimeHalf(t *testing.T) {
	// Times differing only in the high half are different instants.
	scenario := &Scenario{
		Name:        "high_half",
		Description: "exact 64-bit comparison",
		Steps: []Step{
			{Register: &RegisterStep{Site: "ev1", Args: []string{"clk"}}},
			{Change: &ChangeStep{Signal: "clk", Value: "1", Time: 7}},
			{Query: &QueryStep{Site: "ev1", Time: 1<<32 | 7, Expect: ptr(false)}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Assertions(t *testing.T) {
	scenario := edgeScenario()
	scenario.Assertions = []Assertion{
		{Type: AssertTraceCount, Kind: "change", Count: 2},
		{Type: AssertTraceOrder, Kinds: []string{"register", "query", "teardown"}},
		{Type: AssertFinishCode, Code: 1},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "finish_code")
}

func TestRun_SessionID(t *testing.T) {
	t.Run("scenario value wins", func(t *testing.T) {
		scenario := edgeScenario()
		scenario.SessionID = "fixed"
		result, err := Run(context.Background(), scenario, WithSessionIDGenerator(trace.NewFixedGenerator("gen")))
		require.NoError(t, err)
		assert.Equal(t, "fixed", result.SessionID)
	})

	t.Run("generator", func(t *testing.T) {
		result, err := Run(context.Background(), edgeScenario(), WithSessionIDGenerator(trace.NewFixedGenerator("gen")))
		require.NoError(t, err)
		assert.Equal(t, "gen", result.SessionID)
	})
}

func TestRun_WithStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	result, err := Run(ctx, edgeScenario(), WithStore(st))
	require.NoError(t, err)

	sess, err := st.ReadSession(ctx, DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, "edge", sess.Scenario)
	assert.Equal(t, 7, sess.Events)

	events, err := st.ReadTrace(ctx, DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, result.Trace, events)
}

func TestRun_WithMetrics(t *testing.T) {
	m := metrics.NewRecorder()

	_, err := Run(context.Background(), edgeScenario(), WithMetrics(m))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MonitorsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Queries.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Released))
}

func TestRun_Deterministic(t *testing.T) {
	a, err := Run(context.Background(), edgeScenario())
	require.NoError(t, err)
	b, err := Run(context.Background(), edgeScenario())
	require.NoError(t, err)

	assert.Equal(t, a.Trace, b.Trace)
}
