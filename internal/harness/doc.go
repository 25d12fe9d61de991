// Package harness runs YAML-defined booking lifecycle scenarios against
// the full engine stack: a per-actor coordinator and local cache in
// front of the in-memory authoritative store.
//
// A scenario seeds subjects, drives a flow of user actions with expected
// outcome codes, and then asserts on final subject, engagement, and
// notification state. Every run uses deterministic clocks and id
// generators, so the recorded trace is byte-stable and suitable for
// golden comparison.
package harness
