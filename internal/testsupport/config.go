package testsupport

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"handoff/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It points at an unused local port so probes fail fast unless a daemon is attached.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.Host = "127.0.0.1"
	cfgVal.Daemon.Port = 1
	cfgVal.Daemon.TimeoutMillis = 2000
	cfgVal.Restart.RuntimeDir = filepath.Join(base, "run")
	cfgVal.Restart.PollIntervalMillis = 10
	cfgVal.Restart.PauseSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDaemon points the config at a fake daemon.
func WithDaemon(d *Daemon) ConfigOption {
	return func(b *configBuilder) {
		parsed, err := url.Parse(d.URL)
		if err != nil {
			b.t.Fatalf("parse daemon url: %v", err)
		}
		host, port, err := net.SplitHostPort(parsed.Host)
		if err != nil {
			b.t.Fatalf("split daemon host: %v", err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil {
			b.t.Fatalf("daemon port: %v", err)
		}
		b.cfg.Daemon.Protocol = parsed.Scheme
		b.cfg.Daemon.Host = host
		b.cfg.Daemon.Port = portNum
	}
}

// WithCheckPIDScript installs a check-pid stub with the given shell body.
func WithCheckPIDScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Restart.CheckPID = WriteScript(b.t, filepath.Join(b.baseDir, "bin", "check-pid"), body)
	}
}

// WithStartScript installs a start-command stub with the given shell body.
func WithStartScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Restart.StartCommand = WriteScript(b.t, filepath.Join(b.baseDir, "bin", "start-daemon"), body)
	}
}

// WithRestartPolicy overrides the restart policy.
func WithRestartPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Restart.Policy = policy
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Restart.RuntimeDir)
}
