package monitor

import (
	"fmt"

	"github.com/roach88/sigevent/internal/simtime"
)

// AttributeName is the system function the host exposes for 'event.
const AttributeName = "$ivlh_attribute_event"

// AttributeWidth is the bit width of the attribute's result.
const AttributeWidth = 1

// Logic is a single-bit logic value as returned to the host.
type Logic uint8

const (
	Logic0 Logic = iota
	Logic1
)

// LogicOf converts a query result into a logic value.
func LogicOf(b bool) Logic {
	if b {
		return Logic1
	}
	return Logic0
}

func (l Logic) String() string {
	if l == Logic1 {
		return "1"
	}
	return "0"
}

// Host is everything the attribute binding needs from the simulator.
type Host interface {
	Subscriber

	// Now returns the current simulation time.
	Now() simtime.Timestamp

	// PutUserData stores h in the call site's user-data slot.
	PutUserData(site CallSite, h Handle)

	// UserData returns the handle stored for the call site.
	UserData(site CallSite) (Handle, bool)

	// Diagnose reports an error through the host's diagnostic channel.
	Diagnose(err error)

	// Finish asks the host to stop with the given status.
	Finish(code int)
}

// Attribute binds a Registry to a host simulator. Its three methods are the
// compile, call and end-of-simulation hooks of the system function.
type Attribute struct {
	reg  *Registry
	host Host
}

// NewAttribute creates the binding.
func NewAttribute(reg *Registry, host Host) *Attribute {
	return &Attribute{reg: reg, host: host}
}

// Registry returns the registry that owns this binding's monitors.
func (a *Attribute) Registry() *Registry {
	return a.reg
}

// Compile registers the call site. On any setup error the error is reported
// to the host and the host is asked to finish with status 1; the error is
// returned as well. A monitor created despite extra arguments is still stored
// in the call site's user-data slot.
func (a *Attribute) Compile(site CallSite, args []Signal) error {
	h, err := a.reg.Register(site, args, a.host)
	if h.Valid() {
		a.host.PutUserData(site, h)
	}
	if err != nil {
		a.host.Diagnose(err)
		a.host.Finish(1)
	}
	return err
}

// Call evaluates the attribute for the call site at the host's current time.
func (a *Attribute) Call(site CallSite) (Logic, error) {
	h, ok := a.host.UserData(site)
	if !ok || !h.Valid() {
		return Logic0, fmt.Errorf("%s: %w", site, ErrNoMonitor)
	}
	return LogicOf(a.reg.Query(h, a.host.Now())), nil
}

// EndOfSimulation releases every monitor. It is safe to call more than once.
func (a *Attribute) EndOfSimulation() int {
	return a.reg.TeardownAll()
}
