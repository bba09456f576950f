// Package harness provides conformance testing for the event attribute.
//
// A scenario scripts one host session: it registers call sites, drives
// signal values at given simulation times, calls the attribute and ends the
// simulation. Each query carries the result it expects. The recorded trace
// can be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are YAML files (or CUE files with the same fields):
//
//	name: edge_after_change
//	description: "query is true only at the change tick"
//	session_id: fixed-session-1
//	signals:
//	  clk: "0"
//	steps:
//	  - register: {site: ev1, file: top.vhd, line: 12, args: [clk]}
//	  - change:   {signal: clk, value: "1", time: 100}
//	  - query:    {site: ev1, time: 100, expect: true}
//	  - query:    {site: ev1, time: 101, expect: false}
//	  - teardown: {expect_released: 1}
//	assertions:
//	  - type: trace_count
//	    kind: change
//	    count: 1
//
// Exactly one of register, change, query or teardown is set per step.
// Times are full 64-bit simulation times. A change to the current value of
// a signal is not a value change and notifies nobody.
//
// # Assertion Types
//
//   - trace_count: Verifies events of a kind appear exactly N times
//   - trace_order: Verifies event kinds appear in the given order
//   - finish_code: Verifies the finish status requested from the host
//
// # Deterministic Testing
//
// Every run uses a fresh host and registry, a logical clock starting at 1
// and a fixed session id (from session_id, or "test-session-default"), so
// traces are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/edge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
