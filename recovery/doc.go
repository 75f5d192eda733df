// Package recovery turns raised errors into structured, recoverable outcomes.
//
// Every error entering Handler.Handle is classified into a Kind (explicit
// tag first, then message text matching in a fixed priority order) and routed
// through a per-kind recovery strategy. Strategies never leak raw errors:
// callers always receive an Outcome, even when a strategy itself fails (the
// ultimate fallback bundles both errors with a restart suggestion).
//
// Handled errors are appended to a bounded circular log from which the
// recovery rate and per-kind counts are derived on demand.
package recovery
