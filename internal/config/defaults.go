package config

const (
	defaultProtocol           = "http"
	defaultHost               = "localhost"
	defaultPort               = 3000
	defaultSocketPath         = "/socket.io/"
	defaultTimeoutMillis      = 5000
	defaultRestartPolicy      = RestartPolicyPoll
	defaultPauseSeconds       = 5
	defaultPollIntervalMillis = 300
	defaultRuntimeDir         = "~/.local/state/handoff"
	defaultLogFormat          = "console"
	defaultLogLevel           = "warn"
)

// Restart policies understood by the lifecycle coordinator.
const (
	RestartPolicyPoll  = "poll"
	RestartPolicyPause = "pause"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Protocol:      defaultProtocol,
			Host:          defaultHost,
			Port:          defaultPort,
			Path:          defaultSocketPath,
			TimeoutMillis: defaultTimeoutMillis,
		},
		Restart: Restart{
			Policy:             defaultRestartPolicy,
			PauseSeconds:       defaultPauseSeconds,
			PollIntervalMillis: defaultPollIntervalMillis,
			RuntimeDir:         defaultRuntimeDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
