// Package trace records engine events and serializes them deterministically.
//
// A trace is JSON Lines: a header object followed by one object per event,
// each written in canonical form (RFC 8785 key order, NFC strings, no HTML
// escaping, no floats, no null). Two runs of the same scenario with the same
// run ID produce byte-identical traces, which is what golden files and
// Digest compare.
package trace
