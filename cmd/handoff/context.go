package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"handoff/internal/config"
	"handoff/internal/daemonctl"
	"handoff/internal/faults"
	"handoff/internal/ipc"
	"handoff/internal/logging"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		debugFlag:  debugFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = faults.Wrap(faults.ErrConfiguration, "load config", resolved, err)
			return
		}
		if c.debugFlag != nil && *c.debugFlag {
			cfg.Logging.Debug = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = faults.Wrap(faults.ErrConfiguration, "prepare directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) debug() bool {
	cfg, err := c.ensureConfig()
	if err != nil {
		return c.debugFlag != nil && *c.debugFlag
	}
	return cfg.Logging.Debug
}

func (c *commandContext) logger(stderr io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, stderr)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "build logger", "", err)
	}
	return logger, nil
}

// coordinator wires a lifecycle coordinator to the configured daemon, writing
// reports to the command's output streams.
func (c *commandContext) coordinator(cmd *cobra.Command) (*daemonctl.Coordinator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger.Debug("daemon target", logging.String(logging.FieldURL, cfg.DaemonURL()))

	client := ipc.NewClientFromConfig(cfg, logger)
	reporter := newLineReporter(cmd.OutOrStdout(), c.debug())
	return daemonctl.NewFromConfig(cfg, client, reporter, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
