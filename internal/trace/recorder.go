package trace

import (
	"github.com/roach88/sigevent/internal/monitor"
	"github.com/roach88/sigevent/internal/simtime"
)

// Recorder is a monitor.Observer that appends an Event for every operation.
//
// Like the registry it observes, a Recorder is driven by a single goroutine.
type Recorder struct {
	clock  *Clock
	events []Event
}

var _ monitor.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder stamping events from clock. A nil clock
// gets a fresh one.
func NewRecorder(clock *Clock) *Recorder {
	if clock == nil {
		clock = NewClock()
	}
	return &Recorder{clock: clock, events: []Event{}}
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

func (r *Recorder) add(ev Event) {
	ev.Seq = r.clock.Next()
	r.events = append(r.events, ev)
}

// Registered implements monitor.Observer.
func (r *Recorder) Registered(site monitor.CallSite, signal string, h monitor.Handle, err error) {
	ev := Event{
		Kind:   KindRegister,
		Site:   site.String(),
		Handle: int(h),
		Signal: signal,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.add(ev)
}

// Notified implements monitor.Observer.
func (r *Recorder) Notified(h monitor.Handle, now simtime.Timestamp) {
	r.add(Event{Kind: KindChange, Handle: int(h), Time: now})
}

// Queried implements monitor.Observer.
func (r *Recorder) Queried(h monitor.Handle, now simtime.Timestamp, result bool) {
	r.add(Event{Kind: KindQuery, Handle: int(h), Time: now, Result: result})
}

// TornDown implements monitor.Observer.
func (r *Recorder) TornDown(released int) {
	r.add(Event{Kind: KindTeardown, Handle: int(monitor.InvalidHandle), Released: released})
}
