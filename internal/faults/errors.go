package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnect           = errors.New("connect error")
	ErrConnectTimeout    = errors.New("connect timeout")
	ErrTransport         = errors.New("transport error")
	ErrLocalTimeout      = errors.New("local timeout")
	ErrMalformedResponse = errors.New("malformed response")
	ErrRemote            = errors.New("remote error")
	ErrExternalProcess   = errors.New("external process failure")
	ErrRestartTimedOut   = errors.New("restart timed out")
	ErrRestartInProgress = errors.New("restart already in progress")
	ErrConfiguration     = errors.New("configuration error")
)

// Exit codes returned by the CLI, one per taxonomy entry.
const (
	ExitOK                = 0
	ExitGeneric           = 1
	ExitUsage             = 2
	ExitConnect           = 3
	ExitConnectTimeout    = 4
	ExitTransport         = 5
	ExitLocalTimeout      = 6
	ExitMalformedResponse = 7
	ExitRemote            = 8
	ExitExternalProcess   = 9
	ExitRestartTimedOut   = 10
	ExitRestartInProgress = 11
	ExitConfiguration     = 12
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error to the process exit status the CLI should report.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConnectTimeout):
		return ExitConnectTimeout
	case errors.Is(err, ErrConnect):
		return ExitConnect
	case errors.Is(err, ErrLocalTimeout):
		return ExitLocalTimeout
	case errors.Is(err, ErrTransport):
		return ExitTransport
	case errors.Is(err, ErrMalformedResponse):
		return ExitMalformedResponse
	case errors.Is(err, ErrRemote):
		return ExitRemote
	case errors.Is(err, ErrExternalProcess):
		return ExitExternalProcess
	case errors.Is(err, ErrRestartTimedOut):
		return ExitRestartTimedOut
	case errors.Is(err, ErrRestartInProgress):
		return ExitRestartInProgress
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	default:
		return ExitGeneric
	}
}

// Reason returns the short taxonomy label for err, or "" when err carries no marker.
func Reason(err error) string {
	for _, marker := range []error{
		ErrConnectTimeout,
		ErrConnect,
		ErrLocalTimeout,
		ErrTransport,
		ErrMalformedResponse,
		ErrRemote,
		ErrExternalProcess,
		ErrRestartTimedOut,
		ErrRestartInProgress,
		ErrConfiguration,
	} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return ""
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
