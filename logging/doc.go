// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the leveled, key/value logging methods (Debug,
// Info, Warn, Error) the executor, tools and HTTP layer use for diagnostics.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (tests, minimal setups)
//   - NewLogger building a *slog.Logger in json, text or console (tint) format
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	logger.Info("reply.result", "run_id", id, "result", res)
package logging
