// Package main hosts the Handoff CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into daemon
// sessions (status, version, echo, stop) and lifecycle operations (start,
// restart) coordinated by internal/daemonctl. Configuration resolution and
// logger setup happen once per invocation in the command context.
package main
