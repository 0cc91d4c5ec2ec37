package daemonctl

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"handoff/internal/logging"
)

// PIDChecker reports whether the process with the given pid has exited.
// Any failure to check counts as "still present".
type PIDChecker interface {
	Exited(ctx context.Context, pid int) bool
}

// ScriptChecker runs an external utility as `<Path> <pid>`. Exit status 0
// means the process is gone.
type ScriptChecker struct {
	Path   string
	Logger *slog.Logger
}

// Exited runs the check utility once and waits for it.
func (c ScriptChecker) Exited(ctx context.Context, pid int) bool {
	logger := logging.NewComponentLogger(c.Logger, "daemonctl")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, strconv.Itoa(pid))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Debug("check-pid stdout", logging.String("output", out))
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		logger.Debug("check-pid stderr", logging.String("output", out))
	}

	if err == nil {
		logger.Debug("check-pid reports exit", logging.Int(logging.FieldPID, pid))
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("check-pid reports process present",
			logging.Int(logging.FieldPID, pid),
			logging.Int("exit_code", exitErr.ExitCode()),
		)
		return false
	}
	logging.WarnWithContext(logger, "check-pid could not run", "pid_check_failed",
		logging.String("path", c.Path),
		logging.Int(logging.FieldPID, pid),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify restart.check_pid points to an executable"),
		logging.String(logging.FieldImpact, "restart keeps waiting for the old daemon"),
	)
	return false
}

// SignalChecker probes the pid with signal 0. It is used when no check
// utility is configured.
type SignalChecker struct {
	Logger *slog.Logger
}

// Exited reports true once the kernel no longer knows the pid.
func (c SignalChecker) Exited(_ context.Context, pid int) bool {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return false
	case errors.Is(err, unix.ESRCH):
		return true
	default:
		logging.NewComponentLogger(c.Logger, "daemonctl").Debug("signal probe failed",
			logging.Int(logging.FieldPID, pid), logging.Error(err))
		return false
	}
}
