// Package capability orchestrates the optional, slow, independently
// unreliable analysis backends ("capabilities") the workflow can call.
//
// Backends are injected through an explicit Registry: a capability is
// available iff something registered under its name, never by probing
// ambient symbols. The Orchestrator dispatches every eligible capability
// concurrently, waits at a join barrier until all of them settle, and merges
// the results into one composite Report. A single capability failing never
// aborts the batch; after its retries are exhausted it contributes a
// failure Result carrying a capability-specific fallback payload instead.
//
// Results are memoized in the shared tiered cache keyed by capability name
// plus a content hash of the requirement text, so a resumed session can be
// served without re-running the backends.
package capability
