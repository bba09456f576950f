package monitor

import "github.com/roach88/sigevent/internal/simtime"

type testSignal string

func (s testSignal) Name() string { return string(s) }

// fakeHost keeps subscriptions per signal name and lets tests fire changes.
type fakeHost struct {
	now         simtime.Timestamp
	subs        map[string][]ChangeFunc
	userData    map[CallSite]Handle
	diagnostics []error
	finished    []int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		subs:     make(map[string][]ChangeFunc),
		userData: make(map[CallSite]Handle),
	}
}

func (h *fakeHost) Subscribe(sig Signal, fn ChangeFunc) {
	h.subs[sig.Name()] = append(h.subs[sig.Name()], fn)
}

func (h *fakeHost) fire(name string, now simtime.Timestamp) {
	h.now = now
	for _, fn := range h.subs[name] {
		fn(now)
	}
}

func (h *fakeHost) Now() simtime.Timestamp { return h.now }
func (h *fakeHost) PutUserData(site CallSite, hd Handle) { h.userData[site] = hd }
func (h *fakeHost) Diagnose(err error) { h.diagnostics = append(h.diagnostics, err) }
func (h *fakeHost) Finish(code int) { h.finished = append(h.finished, code) }

func (h *fakeHost) UserData(site CallSite) (Handle, bool) {
	hd, ok := h.userData[site]
	return hd, ok
}

// countingObserver tallies observer calls.
type countingObserver struct {
	registered int
	notified   int
	queried    int
	trueCount  int
	tornDown   []int
	lastErr    error
	lastSignal string
}

func (o *countingObserver) Registered(_ CallSite, signal string, _ Handle, err error) {
	o.registered++
	o.lastErr = err
	o.lastSignal = signal
}

func (o *countingObserver) Notified(Handle, simtime.Timestamp) { o.notified++ }

func (o *countingObserver) Queried(_ Handle, _ simtime.Timestamp, result bool) {
	o.queried++
	if result {
		o.trueCount++
	}
}

func (o *countingObserver) TornDown(n int) { o.tornDown = append(o.tornDown, n) }
