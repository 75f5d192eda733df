// Package logging provides a minimal logging interface and adapters for ReqMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runtime components use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	rt := reqmesh.New(func(o *reqmesh.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available. Adapters for zap and
// zerolog live in sub-packages so the root package stays dependency free.
package logging
