// Package monitor implements the 'event attribute of a signal: a monitor that
// remembers the simulation time of the most recent value change and answers
// whether "now" is exactly that time.
//
// ARCHITECTURE:
//
// Registry:
// The Registry owns every monitor record created during a simulation. Records
// live in an append-only arena and are addressed by Handle, an index into that
// arena. The host keeps handles in its per-call-site user-data slot and in its
// value-change subscriptions; handles are lookup keys, never owners.
//
// Lifecycle:
//  1. Elaboration: the host calls Register (or Attribute.Compile) once per
//     call site. One record is created per call site, not per signal.
//  2. Simulation: the host delivers value changes through the subscription
//     and asks for the attribute value through Query (or Attribute.Call).
//  3. End of simulation: the host calls TeardownAll exactly once. Every
//     outstanding handle becomes invalid.
//
// Record state machine:
//
//	Unobserved --change(t)--> Observed(t) --change(t')--> Observed(t')
//
// A record never returns to Unobserved and is never freed individually.
//
// Query is edge-triggered: it is true only when now equals the last change
// time in both halves of the timestamp. A later, unequal time yields false.
//
// CONCURRENCY:
//
// The host drives every operation from its own single-threaded evaluation
// loop. Nothing here blocks, spawns goroutines, or takes locks. Using a
// handle after TeardownAll is a host contract violation and is not checked
// beyond the bounds check Go performs anyway.
package monitor
