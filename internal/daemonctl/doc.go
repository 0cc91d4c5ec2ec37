// Package daemonctl coordinates the Handoff daemon lifecycle from the client
// side: status, start, stop, version, and the stop, wait-for-exit, spawn
// restart cycle.
//
// The restart walks an explicit state machine. It stops the daemon through the
// ipc client, polls a PIDChecker until the old process is gone, and only then
// hands the start command to a detached Launcher. A file lock keeps two
// restarts from racing. Every user-facing line goes through a Reporter.
package daemonctl
