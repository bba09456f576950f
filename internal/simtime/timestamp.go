// Package simtime models the simulation clock reported by the host simulator.
package simtime

import "fmt"

// Timestamp is a simulation time value split into two 32-bit halves.
//
// Together High and Low form a 64-bit logical clock. The monitor only ever
// compares timestamps for exact equality; no ordering is defined here.
type Timestamp struct {
	High uint32
	Low  uint32
}

// New builds a Timestamp from its halves.
func New(high, low uint32) Timestamp {
	return Timestamp{High: high, Low: low}
}

// FromUint64 splits a 64-bit clock value into high and low halves.
func FromUint64(v uint64) Timestamp {
	return Timestamp{High: uint32(v >> 32), Low: uint32(v)}
}

// Uint64 joins the halves back into a single 64-bit value.
func (t Timestamp) Uint64() uint64 {
	return uint64(t.High)<<32 | uint64(t.Low)
}

// Equal reports whether both halves of t and o match exactly.
func (t Timestamp) Equal(o Timestamp) bool {
	return t.High == o.High && t.Low == o.Low
}

// String renders the timestamp as "high:low".
func (t Timestamp) String() string {
	return fmt.Sprintf("%d:%d", t.High, t.Low)
}
