package daemonctl

import "handoff/internal/envelope"

// Severity classifies a reported line.
type Severity string

const (
	SeverityOK    Severity = "ok"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Reporter receives the human-readable outcome of each step.
type Reporter interface {
	// Report writes one status line.
	Report(severity Severity, message string)
	// Response receives every decoded daemon response, for debug output.
	Response(resp envelope.Response)
}

// Messages printed by the lifecycle operations.
const (
	MsgRunning        = "Handoff daemon is running"
	MsgNotRunning     = "Handoff daemon is not running"
	MsgAlreadyRunning = "Handoff daemon is already running"
	MsgStarted        = "Handoff daemon started"
	MsgStartFailed    = "Failed to start Handoff daemon"
)
