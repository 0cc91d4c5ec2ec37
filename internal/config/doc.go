// Package config loads, normalizes, and validates Handoff client configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HANDOFF_HOST and HANDOFF_PORT. The Config value is immutable once loaded and
// is passed explicitly into the IPC client and the daemon lifecycle
// coordinator rather than read from ambient global state.
package config
