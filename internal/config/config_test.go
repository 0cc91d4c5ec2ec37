package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"handoff/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(t.TempDir())

	cfg, path, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no config file, got %q", path)
	}
	if want := filepath.Join(tempHome, ".config", "handoff", "config.toml"); path != want {
		t.Fatalf("unexpected default path %q, want %q", path, want)
	}
	if got := cfg.DaemonURL(); got != "http://localhost:3000" {
		t.Fatalf("unexpected daemon url %q", got)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Timeout())
	}
	if cfg.PollInterval() != 300*time.Millisecond {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval())
	}
	if cfg.Restart.Policy != config.RestartPolicyPoll {
		t.Fatalf("unexpected default policy %q", cfg.Restart.Policy)
	}
	if want := filepath.Join(tempHome, ".local", "state", "handoff"); cfg.Restart.RuntimeDir != want {
		t.Fatalf("runtime dir not expanded: %q", cfg.Restart.RuntimeDir)
	}
	if want := filepath.Join(cfg.Restart.RuntimeDir, "handoff-restart.lock"); cfg.RestartLockPath() != want {
		t.Fatalf("unexpected lock path %q", cfg.RestartLockPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[daemon]
protocol = "https://"
host = "daemon.local"
port = 4100
path = "io"
timeout_ms = 750

[restart]
policy = "Pause"
pause_seconds = 2
max_polls = 40
check_pid = "~/bin/check-pid"
start_command = "~/bin/handoff-daemon"
start_args = ["--quiet"]

[logging]
format = "json"
debug = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if got := cfg.DaemonURL(); got != "https://daemon.local:4100" {
		t.Fatalf("unexpected daemon url %q", got)
	}
	if cfg.Daemon.Path != "/io/" {
		t.Fatalf("expected normalized socket path, got %q", cfg.Daemon.Path)
	}
	if cfg.Timeout() != 750*time.Millisecond {
		t.Fatalf("unexpected timeout %v", cfg.Timeout())
	}
	if cfg.Restart.Policy != config.RestartPolicyPause || cfg.Pause() != 2*time.Second {
		t.Fatalf("unexpected restart policy %+v", cfg.Restart)
	}
	if cfg.Restart.MaxPolls != 40 {
		t.Fatalf("unexpected max polls %d", cfg.Restart.MaxPolls)
	}
	if want := filepath.Join(tempHome, "bin", "check-pid"); cfg.Restart.CheckPID != want {
		t.Fatalf("check_pid not expanded: %q", cfg.Restart.CheckPID)
	}
	if want := filepath.Join(tempHome, "bin", "handoff-daemon"); cfg.Restart.StartCommand != want {
		t.Fatalf("start_command not expanded: %q", cfg.Restart.StartCommand)
	}
	if len(cfg.Restart.StartArgs) != 1 || cfg.Restart.StartArgs[0] != "--quiet" {
		t.Fatalf("unexpected start args %v", cfg.Restart.StartArgs)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestCommandsKeepBareNames(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `[restart]
start_command = "handoff-daemon"
check_pid = "~/bin/check-pid"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Restart.StartCommand != "handoff-daemon" {
		t.Fatalf("bare command rewritten to %q", cfg.Restart.StartCommand)
	}
	if want := filepath.Join(home, "bin", "check-pid"); cfg.Restart.CheckPID != want {
		t.Fatalf("check_pid = %q, want %q", cfg.Restart.CheckPID, want)
	}
}

func TestEnvironmentOverridesHostAndPort(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HANDOFF_HOST", "10.0.0.5")
	t.Setenv("HANDOFF_PORT", "3100")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.DaemonURL(); got != "http://10.0.0.5:3100" {
		t.Fatalf("unexpected daemon url %q", got)
	}
}

func TestEnvironmentPortMustBeNumeric(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HANDOFF_PORT", "three-thousand")

	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for non-numeric HANDOFF_PORT")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "protocol", mutate: func(c *config.Config) { c.Daemon.Protocol = "gopher" }, want: "daemon.protocol"},
		{name: "port", mutate: func(c *config.Config) { c.Daemon.Port = 70000 }, want: "daemon.port"},
		{name: "timeout", mutate: func(c *config.Config) { c.Daemon.TimeoutMillis = -1 }, want: "daemon.timeout_ms"},
		{name: "policy", mutate: func(c *config.Config) { c.Restart.Policy = "yolo" }, want: "restart.policy"},
		{name: "max polls", mutate: func(c *config.Config) { c.Restart.MaxPolls = -3 }, want: "restart.max_polls"},
		{name: "log level", mutate: func(c *config.Config) { c.Logging.Level = "loud" }, want: "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.DaemonURL() != "http://localhost:3000" {
		t.Fatalf("unexpected sample daemon url %q", cfg.DaemonURL())
	}
	if cfg.Restart.CheckPID != "" || cfg.Restart.StartCommand != "" {
		t.Fatalf("sample should leave collaborator paths empty: %+v", cfg.Restart)
	}
}

func TestEncodeIncludesSections(t *testing.T) {
	cfg := config.Default()
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	for _, section := range []string{"[daemon]", "[restart]", "[logging]", "timeout_ms = 5000"} {
		if !strings.Contains(out, section) {
			t.Fatalf("expected %q in encoded config:\n%s", section, out)
		}
	}
}
