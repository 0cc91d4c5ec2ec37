package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Daemon describes where the daemon listens and how long one exchange may take.
type Daemon struct {
	Protocol      string `toml:"protocol"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Path          string `toml:"path"`
	TimeoutMillis int    `toml:"timeout_ms"`
}

// Restart controls the stop/poll/spawn cycle.
type Restart struct {
	// Policy is "poll" (wait for the old PID to exit) or "pause" (sleep
	// PauseSeconds and spawn without verifying exit).
	Policy             string   `toml:"policy"`
	PauseSeconds       int      `toml:"pause_seconds"`
	PollIntervalMillis int      `toml:"poll_interval_ms"`
	// MaxPolls bounds the exit polling loop. Zero polls until the process exits.
	MaxPolls     int      `toml:"max_polls"`
	CheckPID     string   `toml:"check_pid"`
	StartCommand string   `toml:"start_command"`
	StartArgs    []string `toml:"start_args"`
	RuntimeDir   string   `toml:"runtime_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	LogDir string `toml:"log_dir"`
	Debug  bool   `toml:"debug"`
}

// Config encapsulates all configuration values for the Handoff client.
type Config struct {
	Daemon  Daemon  `toml:"daemon"`
	Restart Restart `toml:"restart"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	if base, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && strings.TrimSpace(base) != "" {
		return expandPath(filepath.Join(base, "handoff", "config.toml"))
	}
	return expandPath("~/.config/handoff/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("handoff.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DaemonURL returns the base URL of the daemon, e.g. http://localhost:3000.
func (c *Config) DaemonURL() string {
	host := net.JoinHostPort(c.Daemon.Host, strconv.Itoa(c.Daemon.Port))
	return c.Daemon.Protocol + "://" + host
}

// Timeout returns the per-exchange watchdog duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Daemon.TimeoutMillis) * time.Millisecond
}

// PollInterval returns the delay between PID-liveness checks.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Restart.PollIntervalMillis) * time.Millisecond
}

// Pause returns the fixed wait used by the "pause" restart policy.
func (c *Config) Pause() time.Duration {
	return time.Duration(c.Restart.PauseSeconds) * time.Second
}

// RestartLockPath returns the lock file guarding concurrent restarts.
func (c *Config) RestartLockPath() string {
	return filepath.Join(c.Restart.RuntimeDir, "handoff-restart.lock")
}

// EnsureDirectories creates directories the CLI writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Restart.RuntimeDir}
	if strings.TrimSpace(c.Logging.LogDir) != "" {
		dirs = append(dirs, c.Logging.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
