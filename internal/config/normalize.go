package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeRestart(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeDaemon() error {
	if value, ok := os.LookupEnv("HANDOFF_HOST"); ok && strings.TrimSpace(value) != "" {
		c.Daemon.Host = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("HANDOFF_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("HANDOFF_PORT: %w", err)
		}
		c.Daemon.Port = port
	}

	// Accept both "http" and the "http://" prefix form.
	protocol := strings.ToLower(strings.TrimSpace(c.Daemon.Protocol))
	protocol = strings.TrimSuffix(protocol, "://")
	if protocol == "" {
		protocol = defaultProtocol
	}
	c.Daemon.Protocol = protocol

	c.Daemon.Host = strings.TrimSpace(c.Daemon.Host)
	if c.Daemon.Host == "" {
		c.Daemon.Host = defaultHost
	}
	c.Daemon.Path = strings.TrimSpace(c.Daemon.Path)
	if c.Daemon.Path == "" {
		c.Daemon.Path = defaultSocketPath
	}
	if !strings.HasPrefix(c.Daemon.Path, "/") {
		c.Daemon.Path = "/" + c.Daemon.Path
	}
	if !strings.HasSuffix(c.Daemon.Path, "/") {
		c.Daemon.Path += "/"
	}
	if c.Daemon.TimeoutMillis == 0 {
		c.Daemon.TimeoutMillis = defaultTimeoutMillis
	}
	return nil
}

func (c *Config) normalizeRestart() error {
	c.Restart.Policy = strings.ToLower(strings.TrimSpace(c.Restart.Policy))
	if c.Restart.Policy == "" {
		c.Restart.Policy = defaultRestartPolicy
	}
	if c.Restart.PollIntervalMillis == 0 {
		c.Restart.PollIntervalMillis = defaultPollIntervalMillis
	}

	var err error
	if c.Restart.CheckPID = strings.TrimSpace(c.Restart.CheckPID); c.Restart.CheckPID != "" {
		if c.Restart.CheckPID, err = expandCommand(c.Restart.CheckPID); err != nil {
			return fmt.Errorf("restart.check_pid: %w", err)
		}
	}
	if c.Restart.StartCommand = strings.TrimSpace(c.Restart.StartCommand); c.Restart.StartCommand != "" {
		if c.Restart.StartCommand, err = expandCommand(c.Restart.StartCommand); err != nil {
			return fmt.Errorf("restart.start_command: %w", err)
		}
	}
	if strings.TrimSpace(c.Restart.RuntimeDir) == "" {
		c.Restart.RuntimeDir = defaultRuntimeDir
	}
	if c.Restart.RuntimeDir, err = expandPath(c.Restart.RuntimeDir); err != nil {
		return fmt.Errorf("restart.runtime_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Debug {
		c.Logging.Level = "debug"
	}
	var err error
	if c.Logging.LogDir, err = expandPath(strings.TrimSpace(c.Logging.LogDir)); err != nil {
		return fmt.Errorf("logging.log_dir: %w", err)
	}
	return nil
}

// expandCommand expands executable paths but leaves bare names for a PATH lookup.
func expandCommand(command string) (string, error) {
	if !strings.HasPrefix(command, "~") && !strings.ContainsRune(command, filepath.Separator) {
		return command, nil
	}
	return expandPath(command)
}
