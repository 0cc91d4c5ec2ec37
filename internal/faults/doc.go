// Package faults defines the error taxonomy shared by the transport, session,
// and daemon lifecycle packages.
//
// Errors are tagged with one sentinel marker via Wrap so callers can classify
// them with errors.Is, and ExitCode maps every marker to a distinct process
// exit status for the CLI.
package faults
