package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/sigevent/internal/host"
	"github.com/roach88/sigevent/internal/metrics"
	"github.com/roach88/sigevent/internal/monitor"
	"github.com/roach88/sigevent/internal/simtime"
	"github.com/roach88/sigevent/internal/store"
	"github.com/roach88/sigevent/internal/trace"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	store      *store.Store
	metrics    *metrics.Recorder
	sessionIDs trace.SessionIDGenerator
	logger     *slog.Logger
}

// WithStore persists the recorded trace to st after the run.
func WithStore(st *store.Store) Option {
	return func(c *config) {
		c.store = st
	}
}

// WithMetrics counts monitor activity into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithSessionIDGenerator supplies session ids for scenarios that do not
// name one. Without it such scenarios use DefaultSessionID.
func WithSessionIDGenerator(g trace.SessionIDGenerator) Option {
	return func(c *config) {
		c.sessionIDs = g
	}
}

// WithLogger sets the harness logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Harness executes one scenario against a fresh scripted host.
type Harness struct {
	scenario *Scenario
	sim      *host.Sim
	attr     *monitor.Attribute
	sites    map[string]monitor.CallSite
	released int
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each run gets a fresh host, registry and trace recorder, so runs are
// independent and their traces deterministic.
//
// Execution flow:
//  1. Initialise signals on the host
//  2. Execute steps with expectation checks
//  3. End the simulation if no step did
//  4. Evaluate assertions
//  5. Persist the trace when a store is configured
//
// Failed expectations are reported in the result. The returned error is for
// failures of the harness itself.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		if cfg.sessionIDs != nil {
			sessionID = cfg.sessionIDs.Generate()
		} else {
			sessionID = DefaultSessionID
		}
	}

	sim := host.New()
	for name, value := range scenario.Signals {
		sim.Init(name, value)
	}

	recorder := trace.NewRecorder(nil)
	observers := []monitor.Observer{recorder}
	if cfg.metrics != nil {
		observers = append(observers, cfg.metrics)
	}
	reg := monitor.NewRegistry(monitor.WithObserver(monitor.Observers(observers...)))

	h := &Harness{
		scenario: scenario,
		sim:      sim,
		attr:     monitor.NewAttribute(reg, sim),
		sites:    make(map[string]monitor.CallSite),
		logger:   cfg.logger.With("scenario", scenario.Name, "session", sessionID),
	}
	sim.OnEndOfSimulation(func() {
		h.released = h.attr.EndOfSimulation()
	})

	result := NewResult(sessionID)
	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}

	if !sim.Ended() {
		sim.EndSimulation()
		h.logger.Info("simulation ended", "released", h.released)
	}

	result.Trace = recorder.Events()
	for _, d := range sim.Diagnostics() {
		result.Diagnostics = append(result.Diagnostics, d.Error())
	}
	if finished, code := sim.Finished(); finished {
		result.FinishCode = code
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	if cfg.store != nil {
		if err := cfg.store.WriteTrace(ctx, sessionID, scenario.Name, result.Trace); err != nil {
			return nil, fmt.Errorf("failed to persist trace: %w", err)
		}
	}

	return result, nil
}

func (h *Harness) executeStep(i int, step Step, result *Result) {
	switch {
	case step.Register != nil:
		h.executeRegister(i, step.Register, result)
	case step.Change != nil:
		h.executeChange(i, step.Change, result)
	case step.Query != nil:
		h.executeQuery(i, step.Query, result)
	case step.Teardown != nil:
		h.executeTeardown(i, step.Teardown, result)
	}
}

// callSite resolves a site name. Sites that were never registered get a
// location of their own, so the host has no user data for them.
func (h *Harness) callSite(i int, name, file string, line int) monitor.CallSite {
	if site, ok := h.sites[name]; ok {
		return site
	}
	if file == "" {
		file = h.scenario.Name
	}
	if line == 0 {
		line = i + 1
	}
	return monitor.CallSite{ID: name, File: file, Line: line}
}

// advance moves host time forward. Simulation time never runs backwards.
func (h *Harness) advance(i int, t uint64, result *Result) bool {
	if now := h.sim.Now().Uint64(); t < now {
		result.AddError(fmt.Sprintf("step %d: time %d is before current time %d", i, t, now))
		return false
	}
	h.sim.SetTime(simtime.FromUint64(t))
	return true
}

func (h *Harness) executeRegister(i int, r *RegisterStep, result *Result) {
	if h.sim.Ended() {
		result.AddError(fmt.Sprintf("step %d: register %s: simulation has ended", i, r.Site))
		return
	}
	site := h.callSite(i, r.Site, r.File, r.Line)
	h.sites[r.Site] = site

	args := make([]monitor.Signal, len(r.Args))
	for j, name := range r.Args {
		args[j] = h.sim.Signal(name)
	}

	err := h.attr.Compile(site, args)
	switch {
	case r.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d: register %s: unexpected error: %v", i, r.Site, err))
	case r.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d: register %s: expected error containing %q, got none", i, r.Site, r.ExpectError))
	case r.ExpectError != "" && !strings.Contains(err.Error(), r.ExpectError):
		result.AddError(fmt.Sprintf("step %d: register %s: expected error containing %q, got %q", i, r.Site, r.ExpectError, err.Error()))
	}

	h.logger.Info("register step completed",
		"step", i,
		"site", site.String(),
		"args", len(args),
		"error", err,
	)
}

func (h *Harness) executeChange(i int, c *ChangeStep, result *Result) {
	if h.sim.Ended() {
		result.AddError(fmt.Sprintf("step %d: change %s: simulation has ended", i, c.Signal))
		return
	}
	if !h.advance(i, c.Time, result) {
		return
	}
	changed := h.sim.Drive(c.Signal, c.Value)

	h.logger.Info("change step completed",
		"step", i,
		"signal", c.Signal,
		"value", c.Value,
		"time", h.sim.Now().String(),
		"changed", changed,
	)
}

func (h *Harness) executeQuery(i int, q *QueryStep, result *Result) {
	if !h.advance(i, q.Time, result) {
		return
	}
	site := h.callSite(i, q.Site, "", 0)

	got, err := h.attr.Call(site)
	switch {
	case q.ExpectError != "":
		if err == nil {
			result.AddError(fmt.Sprintf("step %d: query %s at %d: expected error containing %q, got %s", i, q.Site, q.Time, q.ExpectError, got))
		} else if !strings.Contains(err.Error(), q.ExpectError) {
			result.AddError(fmt.Sprintf("step %d: query %s at %d: expected error containing %q, got %q", i, q.Site, q.Time, q.ExpectError, err.Error()))
		}
	case err != nil:
		result.AddError(fmt.Sprintf("step %d: query %s at %d: unexpected error: %v", i, q.Site, q.Time, err))
	case q.Expect != nil && got != monitor.LogicOf(*q.Expect):
		result.AddError(fmt.Sprintf("step %d: query %s at %d: expected %s, got %s", i, q.Site, q.Time, monitor.LogicOf(*q.Expect), got))
	}

	h.logger.Info("query step completed",
		"step", i,
		"site", site.String(),
		"time", h.sim.Now().String(),
		"result", got.String(),
	)
}

func (h *Harness) executeTeardown(i int, td *TeardownStep, result *Result) {
	// A second end of simulation reaches the binding directly; the host
	// only fires its callbacks once.
	if !h.sim.EndSimulation() {
		h.released = h.attr.EndOfSimulation()
	}

	if td.ExpectReleased != nil && *td.ExpectReleased != h.released {
		result.AddError(fmt.Sprintf("step %d: teardown: expected %d released, got %d", i, *td.ExpectReleased, h.released))
	}

	h.logger.Info("teardown step completed", "step", i, "released", h.released)
}
