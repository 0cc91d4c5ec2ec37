package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"handoff/internal/clock"
	"handoff/internal/config"
	"handoff/internal/faults"
	"handoff/internal/ipc"
	"handoff/internal/logging"
)

// Daemon is the subset of ipc.Client the coordinator uses.
type Daemon interface {
	ProbeLiveness(ctx context.Context) bool
	RequestStop(ctx context.Context) (string, error)
	FetchVersion(ctx context.Context) (string, error)
	Echo(ctx context.Context, args []string) (string, error)
}

// Options tunes the restart cycle.
type Options struct {
	Policy       string
	PollInterval time.Duration
	// MaxPolls bounds the exit poll. Zero polls until the process exits.
	MaxPolls int
	Pause    time.Duration
	// LockPath is the restart lock file. Empty disables locking.
	LockPath string
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Coordinator runs lifecycle operations against one daemon.
type Coordinator struct {
	daemon   Daemon
	checker  PIDChecker
	launcher Launcher
	reporter Reporter
	opts     Options
	logger   *slog.Logger
}

// StopResult captures the outcome of a stop request.
type StopResult struct {
	WasRunning bool
	Stop       ipc.StopResult
}

// RestartResult captures the restart cycle.
type RestartResult struct {
	WasRunning bool
	Stop       ipc.StopResult
	Polls      int
	Launched   bool
	State      State
}

// StartResult captures the outcome of a start request.
type StartResult struct {
	AlreadyRunning bool
	Launched       bool
}

// AppInfo identifies the client build for the version banner.
type AppInfo struct {
	Name    string
	Version string
	Author  string
}

// New builds a coordinator from explicit collaborators.
func New(daemon Daemon, checker PIDChecker, launcher Launcher, reporter Reporter, opts Options) *Coordinator {
	if opts.Policy == "" {
		opts.Policy = config.RestartPolicyPoll
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 300 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Coordinator{
		daemon:   daemon,
		checker:  checker,
		launcher: launcher,
		reporter: reporter,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "daemonctl"),
	}
}

// NewFromConfig wires the coordinator to the configured check and start commands.
func NewFromConfig(cfg *config.Config, daemon Daemon, reporter Reporter, logger *slog.Logger) *Coordinator {
	var checker PIDChecker = SignalChecker{Logger: logger}
	if cfg.Restart.CheckPID != "" {
		checker = ScriptChecker{Path: cfg.Restart.CheckPID, Logger: logger}
	}
	launcher := ProcessLauncher{
		Command: cfg.Restart.StartCommand,
		Args:    cfg.Restart.StartArgs,
		Logger:  logger,
	}
	return New(daemon, checker, launcher, reporter, Options{
		Policy:       cfg.Restart.Policy,
		PollInterval: cfg.PollInterval(),
		MaxPolls:     cfg.Restart.MaxPolls,
		Pause:        cfg.Pause(),
		LockPath:     cfg.RestartLockPath(),
		Logger:       logger,
	})
}

// Status reports whether the daemon accepts connections.
func (c *Coordinator) Status(ctx context.Context) bool {
	if c.daemon.ProbeLiveness(ctx) {
		c.reporter.Report(SeverityOK, MsgRunning)
		return true
	}
	c.reporter.Report(SeverityWarn, MsgNotRunning)
	return false
}

// Stop asks a running daemon to shut down. A daemon that is not running is
// reported and is not an error.
func (c *Coordinator) Stop(ctx context.Context) (StopResult, error) {
	if !c.daemon.ProbeLiveness(ctx) {
		c.reporter.Report(SeverityWarn, MsgNotRunning)
		return StopResult{}, nil
	}
	stop, err := c.requestStop(ctx)
	result := StopResult{WasRunning: true, Stop: stop}
	if err != nil {
		return result, err
	}
	if !stop.OK() {
		return result, remoteError("stop", stop.Code)
	}
	return result, nil
}

// Start launches the daemon unless it is already running.
func (c *Coordinator) Start(ctx context.Context) (StartResult, error) {
	if c.daemon.ProbeLiveness(ctx) {
		c.reporter.Report(SeverityInfo, MsgAlreadyRunning)
		return StartResult{AlreadyRunning: true}, nil
	}
	if err := c.launch(); err != nil {
		return StartResult{}, err
	}
	return StartResult{Launched: true}, nil
}

// Version reports the client banner and, when the daemon is up, its version.
func (c *Coordinator) Version(ctx context.Context, app AppInfo) error {
	name := cases.Title(language.Und).String(strings.TrimSpace(app.Name))
	banner := fmt.Sprintf("%s version %s", name, app.Version)
	if app.Author != "" {
		banner += " (" + app.Author + ")"
	}
	c.reporter.Report(SeverityInfo, banner)

	if !c.daemon.ProbeLiveness(ctx) {
		return nil
	}
	raw, err := c.daemon.FetchVersion(ctx)
	if err != nil {
		return err
	}
	info, err := ipc.DecodeVersion(raw)
	if info.Response.Type != "" || info.Response.Code != "" {
		c.reporter.Response(info.Response)
	}
	if err != nil {
		c.reportRemote(info.Code, err)
		return err
	}
	c.reporter.Report(SeverityInfo, info.Version)
	return nil
}

// Echo sends args to the daemon and reports the echoed text.
func (c *Coordinator) Echo(ctx context.Context, args []string) (string, error) {
	raw, err := c.daemon.Echo(ctx, args)
	if err != nil {
		return "", err
	}
	text, resp, err := ipc.DecodeEcho(raw)
	if resp.Code != "" {
		c.reporter.Response(resp)
	}
	if err != nil {
		c.reportRemote(resp.Code, err)
		return "", err
	}
	c.reporter.Report(SeverityInfo, text)
	return text, nil
}

// Restart stops the daemon, waits for the old process to exit, and launches
// a replacement. Nothing happens when the daemon is not running.
func (c *Coordinator) Restart(ctx context.Context) (RestartResult, error) {
	unlock, err := acquireRestartLock(c.opts.LockPath)
	if err != nil {
		return RestartResult{}, err
	}
	defer unlock()

	m := &machine{state: StateCheckingAlive, logger: c.logger}
	result := RestartResult{}

	fail := func(err error) (RestartResult, error) {
		m.fire(EventFail)
		result.State = m.state
		return result, err
	}

	if !c.daemon.ProbeLiveness(ctx) {
		m.fire(EventNotAlive)
		c.reporter.Report(SeverityWarn, MsgNotRunning)
		result.State = m.state
		return result, nil
	}
	m.fire(EventAlive)
	result.WasRunning = true

	stop, err := c.requestStop(ctx)
	result.Stop = stop
	if err != nil {
		return fail(err)
	}
	if !stop.OK() && !stop.HasPID {
		return fail(remoteError("stop", stop.Code))
	}

	switch c.opts.Policy {
	case config.RestartPolicyPause:
		// Nothing checks for exit here, so only an acknowledged stop may lead to a launch.
		if !stop.OK() {
			return fail(remoteError("stop", stop.Code))
		}
		m.fire(EventStoppedNoWait)
		if err := c.sleep(ctx, c.opts.Pause); err != nil {
			return fail(err)
		}
		m.fire(EventPauseElapsed)
	default:
		if !stop.HasPID {
			return fail(faults.Wrap(faults.ErrMalformedResponse, "restart", "stop reply carried no pid to wait on", nil))
		}
		m.fire(EventStopped)
		polls, err := c.waitForExit(ctx, m, stop.PID)
		result.Polls = polls
		if err != nil {
			return fail(err)
		}
	}

	if err := c.launch(); err != nil {
		return fail(err)
	}
	m.fire(EventLaunched)
	result.Launched = true
	result.State = m.state
	return result, nil
}

// requestStop sends STOP and reports the reply. Non-OK replies are returned
// without error so the caller can decide whether to continue.
func (c *Coordinator) requestStop(ctx context.Context) (ipc.StopResult, error) {
	raw, err := c.daemon.RequestStop(ctx)
	if err != nil {
		return ipc.StopResult{}, err
	}
	stop, err := ipc.DecodeStop(raw)
	if err != nil {
		return ipc.StopResult{}, err
	}
	c.reporter.Response(stop.Response)

	if stop.OK() {
		line := stop.Message
		if stop.HasPID {
			line = fmt.Sprintf("%s: %d", stop.Message, stop.PID)
		}
		c.reporter.Report(SeverityOK, line)
		return stop, nil
	}
	c.reporter.Report(SeverityError, fmt.Sprintf("'%s' returned from server", stop.Code))
	logging.WarnWithContext(c.logger, "daemon rejected stop", "stop_rejected",
		logging.String("code", stop.Code),
		logging.Bool("has_pid", stop.HasPID),
		logging.String(logging.FieldImpact, "restart continues only when a pid was returned"),
	)
	return stop, nil
}

// waitForExit polls the checker strictly sequentially until pid is gone.
func (c *Coordinator) waitForExit(ctx context.Context, m *machine, pid int) (int, error) {
	logger := c.logger.With(logging.Int(logging.FieldPID, pid))
	polls := 0
	for {
		polls++
		if c.checker.Exited(ctx, pid) {
			m.fire(EventExited)
			logger.Debug("old daemon exited", logging.Int("polls", polls))
			return polls, nil
		}
		m.fire(EventStillPresent)
		if c.opts.MaxPolls > 0 && polls >= c.opts.MaxPolls {
			return polls, faults.Wrap(faults.ErrRestartTimedOut, "wait for exit",
				fmt.Sprintf("pid %d still present after %d checks", pid, polls), nil)
		}
		logger.Debug("waiting on daemon", logging.Int("polls", polls), logging.Duration("interval", c.opts.PollInterval))
		if err := c.sleep(ctx, c.opts.PollInterval); err != nil {
			return polls, err
		}
	}
}

func (c *Coordinator) launch() error {
	if err := c.launcher.Launch(); err != nil {
		c.reporter.Report(SeverityError, fmt.Sprintf("%s: %v", MsgStartFailed, err))
		return err
	}
	c.reporter.Report(SeverityOK, MsgStarted)
	return nil
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.opts.Clock.After(d):
		return nil
	}
}

// reportRemote prints the server code for non-OK replies so the CLI does not
// have to repeat it.
func (c *Coordinator) reportRemote(code string, err error) {
	if errors.Is(err, faults.ErrRemote) {
		c.reporter.Report(SeverityError, fmt.Sprintf("'%s' returned from server", code))
	}
}

func remoteError(op, code string) error {
	return faults.Wrap(faults.ErrRemote, op, fmt.Sprintf("'%s' returned from server", code), nil)
}

// machine tracks the restart state and logs each transition.
type machine struct {
	state  State
	logger *slog.Logger
}

func (m *machine) fire(event Event) {
	next, err := Transition(m.state, event)
	if err != nil {
		m.logger.Error("restart state machine", logging.Error(err))
		return
	}
	if next != m.state {
		m.logger.Debug("restart state",
			logging.String("from", string(m.state)),
			logging.String("to", string(next)),
			logging.Bool("terminal", next.Terminal()),
		)
	}
	m.state = next
}
