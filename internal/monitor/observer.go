package monitor

import "github.com/roach88/sigevent/internal/simtime"

// Observer is told about every operation performed through a Registry.
//
// Implementations must not call back into the Registry.
type Observer interface {
	// Registered is called once per registration attempt. h is
	// InvalidHandle when no monitor was created. err is the setup error, if
	// any; a valid h with a non-nil err means the extra arguments were
	// ignored.
	Registered(site CallSite, signal string, h Handle, err error)

	// Notified is called after a value change was recorded.
	Notified(h Handle, now simtime.Timestamp)

	// Queried is called with the result of every query.
	Queried(h Handle, now simtime.Timestamp, result bool)

	// TornDown is called on every TeardownAll with the number of released
	// records.
	TornDown(released int)
}

type nopObserver struct{}

func (nopObserver) Registered(CallSite, string, Handle, error) {}
func (nopObserver) Notified(Handle, simtime.Timestamp) {}
func (nopObserver) Queried(Handle, simtime.Timestamp, bool) {}
func (nopObserver) TornDown(int) {}

// Observers combines several observers. They are called in order.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) Registered(site CallSite, signal string, h Handle, err error) {
	for _, o := range m {
		o.Registered(site, signal, h, err)
	}
}

func (m multiObserver) Notified(h Handle, now simtime.Timestamp) {
	for _, o := range m {
		o.Notified(h, now)
	}
}

func (m multiObserver) Queried(h Handle, now simtime.Timestamp, result bool) {
	for _, o := range m {
		o.Queried(h, now, result)
	}
}

func (m multiObserver) TornDown(released int) {
	for _, o := range m {
		o.TornDown(released)
	}
}
