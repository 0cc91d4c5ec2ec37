package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateRestart(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.Protocol {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("daemon.protocol must be one of http, https, ws, wss (got %q)", c.Daemon.Protocol)
	}
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port must be between 1 and 65535 (got %d)", c.Daemon.Port)
	}
	if c.Daemon.TimeoutMillis < 0 {
		return errors.New("daemon.timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateRestart() error {
	switch c.Restart.Policy {
	case RestartPolicyPoll, RestartPolicyPause:
	default:
		return fmt.Errorf("restart.policy must be %q or %q (got %q)", RestartPolicyPoll, RestartPolicyPause, c.Restart.Policy)
	}
	if c.Restart.PauseSeconds < 0 {
		return errors.New("restart.pause_seconds must be >= 0")
	}
	if c.Restart.PollIntervalMillis < 0 {
		return errors.New("restart.poll_interval_ms must be positive")
	}
	if c.Restart.MaxPolls < 0 {
		return errors.New("restart.max_polls must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
