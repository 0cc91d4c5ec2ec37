package daemonctl

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"

	"handoff/internal/faults"
	"handoff/internal/logging"
)

// Launcher spawns a new daemon process.
type Launcher interface {
	Launch() error
}

// ProcessLauncher starts Command in its own session with stdio discarded and
// does not wait for it, so the daemon outlives the client.
type ProcessLauncher struct {
	Command string
	Args    []string
	Logger  *slog.Logger
}

// Launch starts the daemon and releases the process handle.
func (l ProcessLauncher) Launch() error {
	if strings.TrimSpace(l.Command) == "" {
		return faults.Wrap(faults.ErrConfiguration, "launch daemon", "restart.start_command is not set", nil)
	}

	// Nil stdio is wired to the null device.
	proc := exec.Command(l.Command, l.Args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return faults.Wrap(faults.ErrExternalProcess, "launch daemon", l.Command, err)
	}
	pid := proc.Process.Pid
	if err := proc.Process.Release(); err != nil {
		return faults.Wrap(faults.ErrExternalProcess, "release daemon process", fmt.Sprintf("pid %d", pid), err)
	}
	logging.NewComponentLogger(l.Logger, "daemonctl").Debug("daemon launched",
		logging.String("command", l.Command),
		logging.Int(logging.FieldPID, pid),
	)
	return nil
}
