package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"handoff/internal/faults"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	appName   = "handoff"
	version   = "dev"
	appAuthor = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	if shouldPrintError(err) {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(exitCode(err))
}

// usageError marks command-line mistakes so they exit with the usage status.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage usageError
	if errors.As(err, &usage) {
		return faults.ExitUsage
	}
	return faults.ExitCode(err)
}

// shouldPrintError reports whether err still needs to reach stderr. Remote
// rejections were already printed as the command's status line.
func shouldPrintError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, faults.ErrRemote)
}
