// Package logging provides a minimal logging interface and adapters for Reverie.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the memory store, persistence backends and the cognitive
// driver use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ReverieLogger with contextual helpers (component, mode, cycle)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	store := memory.NewStore(backend, memory.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
