// Package trace records what the monitor did during a simulation session.
//
// Every registration, value change, query and teardown observed through a
// monitor.Registry becomes an Event stamped with a logical sequence number.
// Traces are compared against golden files and persisted by the store.
package trace

import (
	"github.com/roach88/sigevent/internal/simtime"
)

// Kind distinguishes trace events.
type Kind string

const (
	KindRegister Kind = "register"
	KindChange   Kind = "change"
	KindQuery    Kind = "query"
	KindTeardown Kind = "teardown"
)

// Event is one observed monitor operation.
//
// Which fields are meaningful depends on Kind:
//   - register: Site, Handle, Signal, Error
//   - change:   Handle, Time
//   - query:    Handle, Time, Result
//   - teardown: Released
type Event struct {
	Seq      int64             `json:"seq"`
	Kind     Kind              `json:"kind"`
	Site     string            `json:"site,omitempty"`
	Handle   int               `json:"handle"`
	Signal   string            `json:"signal,omitempty"`
	Time     simtime.Timestamp `json:"time"`
	Result   bool              `json:"result"`
	Released int               `json:"released,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Canonical returns the event as a map suitable for MarshalCanonical. Only
// the fields meaningful for the event's kind are included.
func (e Event) Canonical() map[string]any {
	m := map[string]any{
		"seq":  e.Seq,
		"kind": string(e.Kind),
	}
	switch e.Kind {
	case KindRegister:
		m["site"] = e.Site
		m["handle"] = e.Handle
		if e.Signal != "" {
			m["signal"] = e.Signal
		}
		if e.Error != "" {
			m["error"] = e.Error
		}
	case KindChange:
		m["handle"] = e.Handle
		m["time"] = e.Time.String()
	case KindQuery:
		m["handle"] = e.Handle
		m["time"] = e.Time.String()
		m["result"] = e.Result
	case KindTeardown:
		m["released"] = e.Released
	}
	return m
}

// Snapshot is the golden-file form of a trace.
type Snapshot struct {
	Scenario  string
	SessionID string
	Events    []Event
}

// MarshalSnapshot renders a snapshot as canonical JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	events := make([]any, len(s.Events))
	for i, ev := range s.Events {
		events[i] = ev.Canonical()
	}

	m := map[string]any{
		"scenario": s.Scenario,
		"trace":    events,
	}
	if s.SessionID != "" {
		m["session_id"] = s.SessionID
	}
	return MarshalCanonical(m)
}
