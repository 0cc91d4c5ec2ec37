// Package logging assembles structured slog loggers used across the Handoff
// client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so the session and lifecycle code can
// tag log lines with the request id and event of the exchange in flight. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
