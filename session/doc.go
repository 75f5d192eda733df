// Package session makes a multi-phase workflow resumable: it owns the
// durable record of one in-progress workflow (phase, answers, capability
// results, progress), persists it periodically to an abstract scoped
// key-value store, and restores it on startup when a recent enough snapshot
// exists.
//
// The Store interface is deliberately minimal so durable backends (files,
// Redis, SQL) can be swapped in without changing calling code; the in-memory
// implementation here is the default for tests and single-process use.
//
// Persistence is defensive end to end: auto-save failures are logged and
// ignored, recovery failures degrade to a fresh session, and a stale
// auto-save never overwrites a newer write-through save (snapshots are
// compared by LastUpdate before writing).
package session
