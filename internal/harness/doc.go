// Package harness runs YAML test scenarios against registered designs.
//
// A scenario names a design from package dut, describes its clocks, reset,
// stimulus, faults and monitors, and lists assertions over the run. Run
// elaborates the design on a fresh sim.Memory kernel, drives it with the
// engine, records every event into a fresh in-memory store and a trace, and
// evaluates the assertions against the store.
//
// Runs are deterministic: with a fixed run ID (the default) two runs of the
// same scenario produce byte-identical traces, which golden files compare.
package harness
