package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"handoff/internal/daemonctl"
	"handoff/internal/envelope"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// lineReporter prints one status line per report and, in debug mode, the
// full response table for every daemon reply.
type lineReporter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	debug    bool
}

func newLineReporter(out io.Writer, debug bool) *lineReporter {
	return &lineReporter{out: out, colorize: shouldColorize(out), debug: debug}
}

func (r *lineReporter) Report(severity daemonctl.Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, renderStatusLine(severity, message, r.colorize))
}

func (r *lineReporter) Response(resp envelope.Response) {
	if !r.debug {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, envelope.Table(resp))
}

func renderStatusLine(severity daemonctl.Severity, message string, colorize bool) string {
	if colorize {
		if color := severityColor(severity); color != "" {
			return color + message + ansiReset
		}
	}
	return message
}

func severityColor(severity daemonctl.Severity) string {
	switch severity {
	case daemonctl.SeverityOK:
		return ansiGreen
	case daemonctl.SeverityWarn:
		return ansiYellow
	case daemonctl.SeverityError:
		return ansiRed
	case daemonctl.SeverityInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
