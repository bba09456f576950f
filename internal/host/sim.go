// Package host provides a scripted stand-in for the host simulator.
//
// Sim implements monitor.Host. It is driven step by step by its caller
// (normally the conformance harness): set the time, drive a signal, call the
// attribute. It keeps only what the attribute's host contract needs: current
// signal values so that a notification is delivered only on a real value
// change, the per-call-site user-data slot, diagnostics, the finish request
// and end-of-simulation callbacks. It does not schedule anything.
package host

import (
	"log/slog"
	"sort"

	"github.com/roach88/sigevent/internal/monitor"
	"github.com/roach88/sigevent/internal/simtime"
)

// UnknownValue is the value of a signal that was never driven.
const UnknownValue = "x"

// Signal is a named signal known to Sim.
type Signal struct {
	name string
}

// Name implements monitor.Signal.
func (s *Signal) Name() string {
	return s.name
}

type signalState struct {
	sig   *Signal
	value string
	subs  []monitor.ChangeFunc
}

// Sim is a single-threaded scripted host.
type Sim struct {
	now         simtime.Timestamp
	signals     map[string]*signalState
	userData    map[monitor.CallSite]monitor.Handle
	diagnostics []error
	finished    bool
	finishCode  int
	endOfSim    []func()
	ended       bool
}

// New creates a host at time 0 with no signals.
func New() *Sim {
	return &Sim{
		signals:  make(map[string]*signalState),
		userData: make(map[monitor.CallSite]monitor.Handle),
	}
}

// Signal returns the named signal, creating it with UnknownValue if needed.
func (s *Sim) Signal(name string) *Signal {
	return s.state(name).sig
}

func (s *Sim) state(name string) *signalState {
	st, ok := s.signals[name]
	if !ok {
		st = &signalState{sig: &Signal{name: name}, value: UnknownValue}
		s.signals[name] = st
	}
	return st
}

// Init sets a signal's value without notifying subscribers.
func (s *Sim) Init(name, value string) {
	s.state(name).value = value
}

// Value returns the current value of a signal.
func (s *Sim) Value(name string) string {
	return s.state(name).value
}

// Signals returns all known signal names, sorted.
func (s *Sim) Signals() []string {
	names := make([]string, 0, len(s.signals))
	for name := range s.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetTime moves the current simulation time.
func (s *Sim) SetTime(now simtime.Timestamp) {
	s.now = now
}

// Now implements monitor.Host.
func (s *Sim) Now() simtime.Timestamp {
	return s.now
}

// Drive assigns value to the named signal at the current time. Subscribers
// are notified, in subscription order, only when the value differs from the
// previous one. Returns whether a change was delivered.
func (s *Sim) Drive(name, value string) bool {
	st := s.state(name)
	if st.value == value {
		slog.Debug("signal unchanged", "signal", name, "value", value, "time", s.now.String())
		return false
	}
	st.value = value

	for _, fn := range st.subs {
		fn(s.now)
	}
	return true
}

// Subscribe implements monitor.Subscriber.
func (s *Sim) Subscribe(sig monitor.Signal, fn monitor.ChangeFunc) {
	st := s.state(sig.Name())
	st.subs = append(st.subs, fn)
}

// Subscribers returns how many callbacks are registered for a signal.
func (s *Sim) Subscribers(name string) int {
	if st, ok := s.signals[name]; ok {
		return len(st.subs)
	}
	return 0
}

// PutUserData implements monitor.Host.
func (s *Sim) PutUserData(site monitor.CallSite, h monitor.Handle) {
	s.userData[site] = h
}

// UserData implements monitor.Host.
func (s *Sim) UserData(site monitor.CallSite) (monitor.Handle, bool) {
	h, ok := s.userData[site]
	return h, ok
}

// Diagnose implements monitor.Host. Diagnostics are kept in order.
func (s *Sim) Diagnose(err error) {
	slog.Error("diagnostic", "error", err)
	s.diagnostics = append(s.diagnostics, err)
}

// Diagnostics returns every reported diagnostic.
func (s *Sim) Diagnostics() []error {
	return s.diagnostics
}

// Finish implements monitor.Host. The first request wins.
func (s *Sim) Finish(code int) {
	if s.finished {
		return
	}
	s.finished = true
	s.finishCode = code
}

// Finished reports whether a finish was requested and with what status.
func (s *Sim) Finished() (bool, int) {
	return s.finished, s.finishCode
}

// OnEndOfSimulation registers a callback run by EndSimulation.
func (s *Sim) OnEndOfSimulation(fn func()) {
	s.endOfSim = append(s.endOfSim, fn)
}

// EndSimulation runs the end-of-simulation callbacks. Only the first call
// has any effect; later calls return false.
//
// Value-change subscriptions and user data are dropped afterwards: both
// refer to released monitors from here on.
func (s *Sim) EndSimulation() bool {
	if s.ended {
		return false
	}
	s.ended = true
	for _, fn := range s.endOfSim {
		fn()
	}
	for _, st := range s.signals {
		st.subs = nil
	}
	s.userData = make(map[monitor.CallSite]monitor.Handle)
	return true
}

// Ended reports whether EndSimulation has run.
func (s *Sim) Ended() bool {
	return s.ended
}
