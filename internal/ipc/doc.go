// Package ipc talks to the Handoff daemon one exchange at a time.
//
// Each Client call builds a Session that owns one transport connection: it
// connects, optionally emits a single request envelope, and settles exactly
// once with either the raw response payload or a tagged failure. A watchdog
// armed at session start bounds the whole exchange. Connections are never
// pooled or reused, and responses are matched by event name only, so a
// connection carries at most one request.
package ipc
