package monitor

import (
	"fmt"
	"log/slog"

	"github.com/roach88/sigevent/internal/simtime"
)

// Handle addresses one monitor record inside a Registry.
//
// Handles are stable for the lifetime of the simulation; records are never
// moved or reused before TeardownAll.
type Handle int

// InvalidHandle is returned when registration did not create a monitor.
const InvalidHandle Handle = -1

// Valid reports whether h can refer to a record.
func (h Handle) Valid() bool {
	return h >= 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("#%d", int(h))
}

// record is the per-call-site state. observed is false until the first
// value change, which makes lastEvent meaningful.
type record struct {
	lastEvent simtime.Timestamp
	observed  bool
}

// Registry owns all monitor records for one simulation session.
//
// INVARIANTS:
//   - records is append-only until TeardownAll
//   - a Handle returned by Create stays valid until TeardownAll
//   - TeardownAll on an empty registry is a no-op
type Registry struct {
	records  []record
	name     string
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver attaches an observer notified of every registration, change,
// query and teardown. Observers see results; they never change them.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithName sets the attribute function name used in diagnostics.
//
// Default: AttributeName ("$ivlh_attribute_event")
func WithName(name string) Option {
	return func(r *Registry) {
		r.name = name
	}
}

// NewRegistry creates an empty registry. Call it when the simulation starts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		name:     AttributeName,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the attribute function name used in diagnostics.
func (r *Registry) Name() string {
	return r.name
}

// Create allocates a new record in the Unobserved state and returns its
// handle. Allocation failure aborts the program, as with any Go allocation.
func (r *Registry) Create() Handle {
	r.records = append(r.records, record{})
	return Handle(len(r.records) - 1)
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Notify records a value change of the observed signal at time now.
// It always overwrites the previous change time.
//
// h must be live; passing a handle after TeardownAll panics.
func (r *Registry) Notify(h Handle, now simtime.Timestamp) {
	rec := &r.records[h]
	rec.lastEvent = now
	rec.observed = true

	r.observer.Notified(h, now)
}

// Query reports whether the observed signal changed at exactly now.
//
// It is false before the first change and false for any time that is not
// equal to the last change time, including later ones. Query does not
// modify the record.
//
// h must be live; passing a handle after TeardownAll panics.
func (r *Registry) Query(h Handle, now simtime.Timestamp) bool {
	rec := r.records[h]
	result := rec.observed && rec.lastEvent.Equal(now)

	r.observer.Queried(h, now, result)
	return result
}

// LastEvent returns the time of the most recent change and whether one has
// happened yet.
func (r *Registry) LastEvent(h Handle) (simtime.Timestamp, bool) {
	rec := r.records[h]
	return rec.lastEvent, rec.observed
}

// TeardownAll releases every record and resets the registry to empty.
// It returns the number of records released; calling it again returns 0.
//
// All handles handed out so far become invalid. The host must not notify or
// query after this point.
func (r *Registry) TeardownAll() int {
	released := len(r.records)
	r.records = nil

	if released > 0 {
		slog.Debug("monitor records released", "count", released)
	}
	r.observer.TornDown(released)
	return released
}
