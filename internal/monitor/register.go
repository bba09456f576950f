package monitor

import (
	"fmt"
	"log/slog"

	"github.com/roach88/sigevent/internal/simtime"
)

// CallSite identifies one textual use of the attribute function in the
// design being simulated.
type CallSite struct {
	// ID distinguishes call sites that share a file and line.
	ID   string
	File string
	Line int
}

// String renders the call site as "file:line".
func (s CallSite) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Signal is a host reference to an observable signal.
type Signal interface {
	Name() string
}

// ChangeFunc receives the simulation time of a value change.
type ChangeFunc func(now simtime.Timestamp)

// Subscriber delivers value-change notifications for a signal.
//
// The host calls fn each time the signal's value differs from its previous
// value, synchronously, from its evaluation loop.
type Subscriber interface {
	Subscribe(sig Signal, fn ChangeFunc)
}

// Register validates the arguments of one call site, creates its monitor
// and subscribes the monitor to value changes of the observed signal.
//
// Outcomes:
//   - no argument: InvalidHandle and a MISSING_ARGUMENT setup error
//   - one argument: a live handle and nil
//   - more arguments: a live handle monitoring args[0] and an
//     EXTRA_ARGUMENTS setup error
//
// The last case keeps the historical behavior of reporting the error while
// still monitoring the first argument. Callers must check h.Valid() rather
// than err to decide whether a monitor exists.
func (r *Registry) Register(site CallSite, args []Signal, sub Subscriber) (Handle, error) {
	if len(args) == 0 {
		err := &SetupError{Code: ErrCodeMissingArgument, Name: r.name, Site: site}
		slog.Warn("attribute setup error", "site", site.String(), "error", err)
		r.observer.Registered(site, "", InvalidHandle, err)
		return InvalidHandle, err
	}

	sig := args[0]
	h := r.Create()
	sub.Subscribe(sig, func(now simtime.Timestamp) {
		r.Notify(h, now)
	})

	var err error
	if len(args) > 1 {
		err = &SetupError{Code: ErrCodeExtraArguments, Name: r.name, Site: site, Args: len(args)}
		slog.Warn("attribute setup error", "site", site.String(), "error", err)
	}

	slog.Debug("monitor registered", "site", site.String(), "signal", sig.Name(), "handle", h.String())
	r.observer.Registered(site, sig.Name(), h, err)
	return h, err
}
