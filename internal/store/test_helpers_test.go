package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sigevent/internal/simtime"
	"github.com/roach88/sigevent/internal/trace"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleTrace is the register/change/query/teardown sequence of one monitor.
func sampleTrace() []trace.Event {
	return []trace.Event{
		{Seq: 1, Kind: trace.KindRegister, Site: "top.vhd:12", Handle: 0, Signal: "clk"},
		{Seq: 2, Kind: trace.KindChange, Handle: 0, Time: simtime.New(0, 100)},
		{Seq: 3, Kind: trace.KindQuery, Handle: 0, Time: simtime.New(0, 100), Result: true},
		{Seq: 4, Kind: trace.KindQuery, Handle: 0, Time: simtime.New(0, 101)},
		{Seq: 5, Kind: trace.KindTeardown, Handle: -1, Released: 1},
	}
}
